package gravity

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
)

func KineticEnergy(bodies []*body.Body) float64 {
	ke := 0.0
	for _, b := range bodies {
		ke += b.KineticEnergy()
	}
	return ke
}

// PotentialEnergy sums -g·mi·mj/r over all pairs, padding r by softening.
// Coincident pairs are skipped, matching Apply.
func PotentialEnergy(bodies []*body.Body, g, softening float64) float64 {
	pe := 0.0
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			r2 := r3.Norm2(r3.Sub(bodies[i].Position, bodies[j].Position))
			if r2 == 0 {
				continue
			}
			r := math.Sqrt(r2 + softening*softening)
			pe -= g * bodies[i].Mass * bodies[j].Mass / r
		}
	}
	return pe
}

// Energy returns the total mechanical energy of the collection.
func (f *Field) Energy(bodies []*body.Body) float64 {
	return KineticEnergy(bodies) + PotentialEnergy(bodies, f.g, f.softening)
}

func Momentum(bodies []*body.Body) r3.Vec {
	var p r3.Vec
	for _, b := range bodies {
		p = r3.Add(p, b.Momentum())
	}
	return p
}

func AngularMomentum(bodies []*body.Body) r3.Vec {
	var l r3.Vec
	for _, b := range bodies {
		l = r3.Add(l, r3.Cross(b.Position, b.Momentum()))
	}
	return l
}

func CenterOfMass(bodies []*body.Body) r3.Vec {
	var c r3.Vec
	total := 0.0
	for _, b := range bodies {
		c = r3.Add(c, r3.Scale(b.Mass, b.Position))
		total += b.Mass
	}
	if total == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/total, c)
}
