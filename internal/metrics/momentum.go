package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/gravity"
)

// vectorDrift tracks the largest deviation of a conserved vector from its
// first sample, relative to scale when scale is non-zero.
type vectorDrift struct {
	name     string
	measure  func([]*body.Body) r3.Vec
	scale    func([]*body.Body) float64
	initial  r3.Vec
	norm     float64
	maxDrift float64
	samples  int
}

func (v *vectorDrift) Name() string { return v.name }

func (v *vectorDrift) Observe(bodies []*body.Body, t float64) {
	current := v.measure(bodies)
	if v.samples == 0 {
		v.initial = current
		v.norm = v.scale(bodies)
	}
	v.samples++

	drift := r3.Norm(r3.Sub(current, v.initial))
	if v.norm > 0 {
		drift /= v.norm
	}
	v.maxDrift = math.Max(v.maxDrift, drift)
}

func (v *vectorDrift) Value() float64 { return v.maxDrift }

func (v *vectorDrift) Reset() {
	v.initial = r3.Vec{}
	v.norm = 0
	v.maxDrift = 0
	v.samples = 0
}

type MomentumDrift struct{ vectorDrift }

// NewMomentumDrift measures total linear momentum against the sum of the
// bodies' momentum magnitudes, which stays meaningful when the total is zero.
func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{vectorDrift{
		name:    "momentum_drift",
		measure: gravity.Momentum,
		scale: func(bodies []*body.Body) float64 {
			s := 0.0
			for _, b := range bodies {
				s += r3.Norm(b.Momentum())
			}
			return s
		},
	}}
}

type AngularMomentumDrift struct{ vectorDrift }

func NewAngularMomentumDrift() *AngularMomentumDrift {
	return &AngularMomentumDrift{vectorDrift{
		name:    "angular_momentum_drift",
		measure: gravity.AngularMomentum,
		scale: func(bodies []*body.Body) float64 {
			s := 0.0
			for _, b := range bodies {
				s += r3.Norm(r3.Cross(b.Position, b.Momentum()))
			}
			return s
		},
	}}
}
