// Package metrics tracks conservation diagnostics over a run.
package metrics

import (
	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/gravity"
)

// Metric is sampled once per recorded frame.
type Metric interface {
	Name() string
	Observe(bodies []*body.Body, t float64)
	Value() float64
	Reset()
}

// Standard returns the metrics every run records.
func Standard(field *gravity.Field, radius float64) []Metric {
	return []Metric{
		NewEnergy(field),
		NewEnergyDrift(field),
		NewMomentumDrift(),
		NewAngularMomentumDrift(),
		NewBounded(radius),
		NewSingularities(field),
	}
}

// Values collects the current value of each metric by name.
func Values(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
