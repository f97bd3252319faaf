// Package frame turns wall-clock frame intervals into simulated-day deltas.
//
// The solver applies whatever delta it is given. A render loop that stalls
// (a hidden tab, a debugger pause) would hand it a huge step and throw the
// bodies off their orbits, so [Clock.Accept] drops such frames entirely
// rather than clamping them.
package frame

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/orrery/internal/units"
)

const (
	// DefaultTimeScale is 0.2 simulated days per wall-clock second.
	DefaultTimeScale = 0.2

	// DefaultMaxDelta is the longest frame interval that is still simulated.
	DefaultMaxDelta = 100 * time.Millisecond

	// MaxTimeScale bounds TimeScale so that an accepted frame under the
	// default MaxDelta stays below one simulated day.
	MaxTimeScale = 10.0
)

var (
	// ErrInvalidRate indicates a non-positive frame rate.
	ErrInvalidRate = errors.New("frame: fps must be positive")

	// ErrInvalidTimeScale indicates a time scale outside (0, MaxTimeScale].
	ErrInvalidTimeScale = errors.New("frame: time scale out of range")
)

// Epoch is the calendar instant that corresponds to zero elapsed days.
var Epoch = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

type Clock struct {
	TimeScale float64       // simulated days per wall-clock second
	MaxDelta  time.Duration // frames at or above this are discarded

	// OnDrop, if set, is called by Run for every discarded frame.
	OnDrop func(delta time.Duration)
}

func DefaultClock() Clock {
	return Clock{TimeScale: DefaultTimeScale, MaxDelta: DefaultMaxDelta}
}

// Validate reports whether the clock can drive a solver.
func (c Clock) Validate() error {
	if !(c.TimeScale > 0 && c.TimeScale <= MaxTimeScale) {
		return fmt.Errorf("%w: %g days/s (max %g)", ErrInvalidTimeScale, c.TimeScale, MaxTimeScale)
	}
	return nil
}

// Accept converts a frame interval into simulated days. ok is false for an
// empty frame or one that reaches MaxDelta.
func (c Clock) Accept(delta time.Duration) (days float64, ok bool) {
	if delta <= 0 || delta >= c.MaxDelta {
		return 0, false
	}
	return delta.Seconds() * c.TimeScale, true
}

// Date maps elapsed simulated days onto the calendar. Whole days go through
// AddDate so spans beyond the range of a time.Duration stay exact.
func Date(elapsed float64) time.Time {
	days, frac := math.Modf(elapsed)
	return Epoch.AddDate(0, 0, int(days)).
		Add(time.Duration(units.SecondsFromDays(frac) * float64(time.Second)))
}

// Run calls step at roughly fps frames per second with the accepted
// simulated delta of each frame until ctx is done. Rejected frames are
// skipped. It returns the number of frames stepped.
func (c Clock) Run(ctx context.Context, fps int, step func(days float64)) (int, error) {
	if fps <= 0 {
		return 0, ErrInvalidRate
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	frames := 0
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return frames, ctx.Err()
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			days, ok := c.Accept(delta)
			if !ok {
				if c.OnDrop != nil {
					c.OnDrop(delta)
				}
				continue
			}
			step(days)
			frames++
		}
	}
}
