package body

import (
	"fmt"

	"github.com/san-kum/orrery/internal/units"
)

// Descriptor is a body as supplied by an external loader, in SI units.
type Descriptor struct {
	Name     string              `yaml:"name" json:"name"`
	Kind     Kind                `yaml:"kind" json:"kind"`
	Mass     float64             `yaml:"mass" json:"mass"`         // kg
	Position [3]float64          `yaml:"position" json:"position"` // m
	Velocity [3]float64          `yaml:"velocity" json:"velocity"` // m/s
	Rotation *RotationDescriptor `yaml:"rotation,omitempty" json:"rotation,omitempty"`
}

type RotationDescriptor struct {
	Obliquity float64 `yaml:"obliquity" json:"obliquity"` // degrees
	Period    float64 `yaml:"period" json:"period"`       // seconds
}

// FromDescriptor converts an SI descriptor into a Body in internal units.
func FromDescriptor(d Descriptor) (*Body, error) {
	var rot *Rotation
	if d.Rotation != nil {
		r, err := NewRotation(d.Rotation.Obliquity, d.Rotation.Period)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		rot = r
	}
	return New(
		d.Name,
		d.Kind,
		units.MassFromKilograms(d.Mass),
		units.VectorFromMeters(d.Position),
		units.VelocityVectorFromSI(d.Velocity),
		rot,
	)
}

// FromDescriptors converts a whole scene, failing on the first bad entry.
func FromDescriptors(ds []Descriptor) ([]*Body, error) {
	bodies := make([]*Body, 0, len(ds))
	for i, d := range ds {
		b, err := FromDescriptor(d)
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}
