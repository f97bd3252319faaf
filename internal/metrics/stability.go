package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/gravity"
)

// Bounded is the fraction of samples in which every body stays within
// radius AU of the centre of mass.
type Bounded struct {
	name       string
	radius     float64
	violations int
	samples    int
}

func NewBounded(radius float64) *Bounded {
	return &Bounded{
		name:   "bounded",
		radius: radius,
	}
}

func (s *Bounded) Name() string {
	return s.name
}

func (s *Bounded) Observe(bodies []*body.Body, t float64) {
	s.samples++
	com := gravity.CenterOfMass(bodies)
	for _, b := range bodies {
		if r3.Norm(r3.Sub(b.Position, com)) > s.radius {
			s.violations++
			break
		}
	}
}

func (s *Bounded) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Bounded) Reset() {
	s.violations = 0
	s.samples = 0
}

// Singularities reports how many pair evaluations the field skipped since
// the last Reset.
type Singularities struct {
	name  string
	field *gravity.Field
	base  int
	last  int
}

func NewSingularities(field *gravity.Field) *Singularities {
	return &Singularities{
		name:  "singular_pairs",
		field: field,
		base:  field.Singularities(),
	}
}

func (s *Singularities) Name() string { return s.name }

func (s *Singularities) Observe(bodies []*body.Body, t float64) {
	s.last = s.field.Singularities()
}

func (s *Singularities) Value() float64 {
	return float64(s.last - s.base)
}

func (s *Singularities) Reset() {
	s.base = s.field.Singularities()
	s.last = s.base
}
