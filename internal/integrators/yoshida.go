package integrators

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
)

// Yoshida fourth-order coefficients, built from the real cube root of 2.
var (
	yoshidaW0 = -math.Cbrt(2) / (2 - math.Cbrt(2))
	yoshidaW1 = 1 / (2 - math.Cbrt(2))

	yoshidaC = [4]float64{
		yoshidaW1 / 2,
		(yoshidaW0 + yoshidaW1) / 2,
		(yoshidaW0 + yoshidaW1) / 2,
		yoshidaW1 / 2,
	}
	yoshidaD = [3]float64{yoshidaW1, yoshidaW0, yoshidaW1}
)

// Yoshida is the fourth-order symplectic composition of drifts and kicks.
// It evaluates the force law three times per sub-step and is the most
// accurate of the three schemes.
type Yoshida struct {
	force ForceLaw
}

func NewYoshida(force ForceLaw) *Yoshida {
	return &Yoshida{force: force}
}

func (y *Yoshida) UpdatePositions(bodies []*body.Body, dt float64) {
	drift(bodies, yoshidaC[0]*dt)
	for stage := 0; stage < 3; stage++ {
		y.force.Apply(bodies)
		kd := yoshidaD[stage] * dt
		cd := yoshidaC[stage+1] * dt
		for _, b := range bodies {
			b.Velocity = r3.Add(b.Velocity, r3.Scale(kd, b.Acceleration))
			b.ResetAcceleration()
			b.Position = r3.Add(b.Position, r3.Scale(cd, b.Velocity))
		}
	}
}

func (y *Yoshida) Kind() Kind { return KindYoshida }
func (y *Yoshida) Reset()     {}
func (*Yoshida) sealed()      {}

func drift(bodies []*body.Body, h float64) {
	for _, b := range bodies {
		b.Position = r3.Add(b.Position, r3.Scale(h, b.Velocity))
	}
}
