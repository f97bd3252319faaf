// Package solver drives an integrator over externally supplied frame deltas.
//
// Each call to [Solver.UpdatePositions] splits the frame delta into
// equal sub-steps, hands them to the active integrator in order, spins the
// bodies once for the whole frame and then advances the elapsed clock by the
// original delta.
//
// # Thread Safety
//
// A Solver and the bodies it drives are NOT safe for concurrent use. The
// caller owns the frame loop.
package solver

import (
	"errors"
	"fmt"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/integrators"
)

// DefaultSubIterations is the number of sub-steps per frame when none is
// configured.
const DefaultSubIterations = 5

var (
	// ErrSubIterations indicates a sub-iteration count below one.
	ErrSubIterations = errors.New("solver: sub-iterations must be at least 1")

	// ErrNoIntegrator indicates a nil integrator.
	ErrNoIntegrator = errors.New("solver: integrator is required")
)

// Observer is notified after every completed frame.
type Observer interface {
	OnStep(bodies []*body.Body, elapsed float64)
}

type ObserverFunc func(bodies []*body.Body, elapsed float64)

func (f ObserverFunc) OnStep(bodies []*body.Body, elapsed float64) { f(bodies, elapsed) }

type Solver struct {
	integrator    integrators.Integrator
	subIterations int
	rotate        bool
	observers     []Observer

	elapsed float64
	steps   int
}

type Option func(*Solver) error

func WithSubIterations(n int) Option {
	return func(s *Solver) error {
		if n < 1 {
			return fmt.Errorf("%w, got %d", ErrSubIterations, n)
		}
		s.subIterations = n
		return nil
	}
}

// WithRotation toggles the per-frame spin of bodies about their own axes.
// Enabled by default.
func WithRotation(enabled bool) Option {
	return func(s *Solver) error {
		s.rotate = enabled
		return nil
	}
}

func WithObserver(o Observer) Option {
	return func(s *Solver) error {
		s.observers = append(s.observers, o)
		return nil
	}
}

func New(integ integrators.Integrator, opts ...Option) (*Solver, error) {
	if integ == nil {
		return nil, ErrNoIntegrator
	}
	s := &Solver{
		integrator:    integ,
		subIterations: DefaultSubIterations,
		rotate:        true,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// UpdatePositions advances bodies by the frame delta dt (days). dt is used
// as given: filtering unstable deltas is the caller's job.
func (s *Solver) UpdatePositions(bodies []*body.Body, dt float64) {
	subDt := dt / float64(s.subIterations)
	for i := 0; i < s.subIterations; i++ {
		s.integrator.UpdatePositions(bodies, subDt)
	}

	if s.rotate {
		for _, b := range bodies {
			b.Rotate(dt)
		}
	}

	// One addition per frame; summing sub-steps would accumulate rounding.
	s.elapsed += dt
	s.steps++

	for _, o := range s.observers {
		o.OnStep(bodies, s.elapsed)
	}
}

// SetIntegrator swaps the active integrator from the next call on. The
// incoming integrator is Reset, so a Verlet starts with no step history; the
// outgoing integrator's history is discarded, not carried over.
func (s *Solver) SetIntegrator(integ integrators.Integrator) error {
	if integ == nil {
		return ErrNoIntegrator
	}
	integ.Reset()
	s.integrator = integ
	return nil
}

func (s *Solver) SetSubIterations(n int) error {
	return WithSubIterations(n)(s)
}

func (s *Solver) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Solver) Integrator() integrators.Integrator { return s.integrator }
func (s *Solver) SubIterations() int                 { return s.subIterations }

// Elapsed returns the simulated time in days, the exact running sum of every
// frame delta.
func (s *Solver) Elapsed() float64 { return s.elapsed }

// Steps returns the number of frames processed.
func (s *Solver) Steps() int { return s.steps }
