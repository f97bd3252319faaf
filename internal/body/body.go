// Package body holds the kinematic state of one simulated mass.
package body

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/units"
)

var (
	// ErrInvalidMass indicates a mass that is not a positive finite number.
	ErrInvalidMass = errors.New("body: mass must be positive and finite")

	// ErrInvalidVector indicates a position or velocity with NaN or Inf components.
	ErrInvalidVector = errors.New("body: vector has non-finite component")

	// ErrInvalidRotation indicates a zero or non-finite rotation period or obliquity.
	ErrInvalidRotation = errors.New("body: rotation period must be non-zero and finite")

	// ErrUnknownKind indicates a classification name that is not recognised.
	ErrUnknownKind = errors.New("body: unknown kind")
)

// Kind classifies a body. It has no effect on the dynamics.
type Kind int

const (
	Planet Kind = iota
	Moon
)

func (k Kind) String() string {
	switch k {
	case Planet:
		return "planet"
	case Moon:
		return "moon"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "planet":
		return Planet, nil
	case "moon":
		return Moon, nil
	}
	return Planet, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Rotation describes the spin of a body about its own axis.
type Rotation struct {
	// Obliquity is the angle in degrees between the spin axis and the
	// perpendicular to the ecliptic.
	Obliquity float64
	// Period is the rotation period in seconds. Negative means retrograde.
	Period float64
	// Axis is the unit spin axis. The ecliptic is the XY plane, so an
	// obliquity of zero points it along +Z.
	Axis r3.Vec
}

func NewRotation(obliquity, period float64) (*Rotation, error) {
	if period == 0 || !finite(period) || !finite(obliquity) {
		return nil, fmt.Errorf("%w: obliquity=%g period=%g", ErrInvalidRotation, obliquity, period)
	}
	rad := units.Radians(obliquity)
	return &Rotation{
		Obliquity: obliquity,
		Period:    period,
		Axis:      r3.Vec{X: math.Sin(rad), Z: math.Cos(rad)},
	}, nil
}

// Body is a point mass. Units: AU, AU/day, AU/day², Earth masses.
//
// Acceleration is a scratch accumulator owned by the force pass; it is zero
// whenever no integrator sub-step is in progress.
type Body struct {
	Name         string
	Kind         Kind
	Mass         float64
	Position     r3.Vec
	Velocity     r3.Vec
	Acceleration r3.Vec
	Rotation     *Rotation

	spin float64
}

func New(name string, kind Kind, mass float64, position, velocity r3.Vec, rotation *Rotation) (*Body, error) {
	if mass <= 0 || !finite(mass) {
		return nil, fmt.Errorf("%w: %s has mass %g", ErrInvalidMass, name, mass)
	}
	if !FiniteVec(position) {
		return nil, fmt.Errorf("%w: %s position %v", ErrInvalidVector, name, position)
	}
	if !FiniteVec(velocity) {
		return nil, fmt.Errorf("%w: %s velocity %v", ErrInvalidVector, name, velocity)
	}
	return &Body{
		Name:     name,
		Kind:     kind,
		Mass:     mass,
		Position: position,
		Velocity: velocity,
		Rotation: rotation,
	}, nil
}

// ApplyForce adds force/mass to the acceleration accumulator.
func (b *Body) ApplyForce(force r3.Vec) {
	b.Acceleration = r3.Add(b.Acceleration, r3.Scale(1/b.Mass, force))
}

func (b *Body) ResetAcceleration() {
	b.Acceleration = r3.Vec{}
}

// Rotate spins the body about its axis for interval days. Bodies without a
// rotation are left untouched.
func (b *Body) Rotate(interval float64) {
	if b.Rotation == nil {
		return
	}
	angle := interval * (units.Day / b.Rotation.Period) * 2 * math.Pi
	b.spin = math.Mod(b.spin+angle, 2*math.Pi)
	if b.spin < 0 {
		b.spin += 2 * math.Pi
	}
}

// Spin returns the accumulated spin angle in [0, 2π).
func (b *Body) Spin() float64 { return b.spin }

// Orientation returns the spin as a rotation about the body's axis. It is
// the identity for bodies without a rotation.
func (b *Body) Orientation() r3.Rotation {
	if b.Rotation == nil {
		return r3.NewRotation(0, r3.Vec{Y: 1})
	}
	return r3.NewRotation(b.spin, b.Rotation.Axis)
}

func (b *Body) Momentum() r3.Vec {
	return r3.Scale(b.Mass, b.Velocity)
}

func (b *Body) KineticEnergy() float64 {
	return 0.5 * b.Mass * r3.Norm2(b.Velocity)
}

func (b *Body) Clone() *Body {
	c := *b
	if b.Rotation != nil {
		r := *b.Rotation
		c.Rotation = &r
	}
	return &c
}

func (b *Body) String() string {
	return fmt.Sprintf("%s(%s, m=%g)", b.Name, b.Kind, b.Mass)
}

// CloneAll deep-copies a body collection.
func CloneAll(bodies []*Body) []*Body {
	out := make([]*Body, len(bodies))
	for i, b := range bodies {
		out[i] = b.Clone()
	}
	return out
}

func FiniteVec(v r3.Vec) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
