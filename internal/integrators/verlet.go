package integrators

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
)

// Verlet is the position Störmer-Verlet scheme with variable step. Local
// truncation error is O(dt⁴), global O(dt²).
//
// The velocity is rebuilt from the position displacement instead of being
// integrated, which keeps trajectories smooth when dt changes between calls.
// The previous step length is the only state; it is primed with the first dt
// seen and forgotten by Reset.
type Verlet struct {
	force  ForceLaw
	prevDt float64
	primed bool
}

func NewVerlet(force ForceLaw) *Verlet {
	return &Verlet{force: force}
}

func (v *Verlet) UpdatePositions(bodies []*body.Body, dt float64) {
	if dt == 0 {
		return
	}
	if !v.primed {
		v.prevDt = dt
		v.primed = true
	}

	v.force.Apply(bodies)
	for _, b := range bodies {
		prev := b.Position
		b.Position = r3.Add(b.Position, r3.Add(
			r3.Scale(dt, b.Velocity),
			r3.Scale(dt*(dt+v.prevDt)/2, b.Acceleration),
		))
		b.Velocity = r3.Scale(-1/dt, r3.Sub(prev, b.Position))
		b.ResetAcceleration()
	}
	v.prevDt = dt
}

// PrevDt returns the step length of the last call and whether one happened.
func (v *Verlet) PrevDt() (float64, bool) { return v.prevDt, v.primed }

func (v *Verlet) Kind() Kind { return KindVerlet }

func (v *Verlet) Reset() {
	v.prevDt = 0
	v.primed = false
}

func (*Verlet) sealed() {}

// Leapfrog is the kick-drift-kick scheme: symplectic, time-reversible and
// globally O(dt²). It evaluates the force law twice per sub-step.
type Leapfrog struct {
	force ForceLaw
}

func NewLeapfrog(force ForceLaw) *Leapfrog {
	return &Leapfrog{force: force}
}

func (l *Leapfrog) UpdatePositions(bodies []*body.Body, dt float64) {
	halfDt := dt / 2

	l.force.Apply(bodies)
	for _, b := range bodies {
		b.Velocity = r3.Add(b.Velocity, r3.Scale(halfDt, b.Acceleration))
		b.Position = r3.Add(b.Position, r3.Scale(dt, b.Velocity))
		b.ResetAcceleration()
	}

	l.force.Apply(bodies)
	for _, b := range bodies {
		b.Velocity = r3.Add(b.Velocity, r3.Scale(halfDt, b.Acceleration))
		b.ResetAcceleration()
	}
}

func (l *Leapfrog) Kind() Kind { return KindLeapfrog }
func (l *Leapfrog) Reset()     {}
func (*Leapfrog) sealed()      {}
