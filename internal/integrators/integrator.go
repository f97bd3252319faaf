// Package integrators provides the time-stepping schemes for the few-body
// problem.
//
// The set is closed: [Verlet], [Leapfrog] and [Yoshida] are the only
// implementations of [Integrator], selected by [Kind] through [New]:
//
//	integ, err := integrators.New(integrators.KindYoshida, gravity.New())
//	integ.UpdatePositions(bodies, dt)
//
// Every UpdatePositions call advances the bodies by exactly one sub-step of
// dt days and leaves all accelerations at zero. Negative dt runs time
// backwards.
package integrators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/orrery/internal/body"
)

// ErrUnknownIntegrator indicates a name or kind outside the closed set.
var ErrUnknownIntegrator = errors.New("integrators: unknown integrator")

// ForceLaw accumulates accelerations into every body of the collection.
type ForceLaw interface {
	Apply(bodies []*body.Body)
}

type Integrator interface {
	// UpdatePositions advances positions and velocities by one sub-step.
	UpdatePositions(bodies []*body.Body, dt float64)
	Kind() Kind
	// Reset forgets any history carried between calls.
	Reset()

	sealed()
}

type Kind int

const (
	KindVerlet Kind = iota
	KindLeapfrog
	KindYoshida
)

var kindNames = map[Kind]string{
	KindVerlet:   "verlet",
	KindLeapfrog: "leapfrog",
	KindYoshida:  "yoshida",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("integrator(%d)", int(k))
}

// Kinds lists every available integrator in declaration order.
func Kinds() []Kind {
	return []Kind{KindVerlet, KindLeapfrog, KindYoshida}
}

func Parse(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIntegrator, name)
}

func New(kind Kind, force ForceLaw) (Integrator, error) {
	switch kind {
	case KindVerlet:
		return NewVerlet(force), nil
	case KindLeapfrog:
		return NewLeapfrog(force), nil
	case KindYoshida:
		return NewYoshida(force), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownIntegrator, kind)
}

// NewByName is Parse followed by New.
func NewByName(name string, force ForceLaw) (Integrator, error) {
	kind, err := Parse(name)
	if err != nil {
		return nil, err
	}
	return New(kind, force)
}
