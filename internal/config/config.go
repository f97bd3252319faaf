package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/integrators"
	"github.com/san-kum/orrery/internal/solver"
)

const (
	DefaultIntegrator  = "yoshida"
	DefaultFrameDt     = 0.1   // days
	DefaultDuration    = 365.0 // days
	DefaultSampleEvery = 10

	// MaxFrameDt is the largest frame delta, in days, a scenario may ask for.
	MaxFrameDt = 2.0
)

var (
	ErrNoBodies        = errors.New("config: scenario has no bodies")
	ErrInvalidFrameDt  = errors.New("config: frame_dt must be positive and at most the stability ceiling")
	ErrInvalidDuration = errors.New("config: duration must be positive")
	ErrCoincident      = errors.New("config: bodies share the same position")
	ErrDuplicateName   = errors.New("config: duplicate body name")
	ErrInvalidSample   = errors.New("config: sample_every must be at least 1")
	ErrInvalidWorkers  = errors.New("config: workers must not be negative")
	ErrInvalidSoften   = errors.New("config: softening must not be negative")
)

// Scenario is a complete simulation setup as stored in YAML. Times are in
// days, softening in AU, body data in SI units.
type Scenario struct {
	Name          string            `yaml:"name"`
	Integrator    string            `yaml:"integrator"`
	SubIterations int               `yaml:"sub_iterations"`
	FrameDt       float64           `yaml:"frame_dt"`
	Duration      float64           `yaml:"duration"`
	Softening     float64           `yaml:"softening,omitempty"`
	Workers       int               `yaml:"workers,omitempty"`
	SampleEvery   int               `yaml:"sample_every"`
	Rotation      bool              `yaml:"rotation"`
	Bodies        []body.Descriptor `yaml:"bodies"`
}

func DefaultScenario() *Scenario {
	return &Scenario{
		Name:          "custom",
		Integrator:    DefaultIntegrator,
		SubIterations: solver.DefaultSubIterations,
		FrameDt:       DefaultFrameDt,
		Duration:      DefaultDuration,
		SampleEvery:   DefaultSampleEvery,
		Rotation:      true,
	}
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, so omitted fields keep their
// default values.
func Parse(data []byte) (*Scenario, error) {
	sc := DefaultScenario()
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return sc, nil
}

func Save(path string, sc *Scenario) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything that would otherwise fail or go unstable
// after the first step.
func (s *Scenario) Validate() error {
	if _, err := integrators.Parse(s.Integrator); err != nil {
		return err
	}
	if s.SubIterations < 1 {
		return fmt.Errorf("%w, got %d", solver.ErrSubIterations, s.SubIterations)
	}
	if s.FrameDt <= 0 || s.FrameDt > MaxFrameDt {
		return fmt.Errorf("%w (%g): got %g", ErrInvalidFrameDt, MaxFrameDt, s.FrameDt)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w, got %g", ErrInvalidDuration, s.Duration)
	}
	if s.SampleEvery < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidSample, s.SampleEvery)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidWorkers, s.Workers)
	}
	if s.Softening < 0 {
		return fmt.Errorf("%w, got %g", ErrInvalidSoften, s.Softening)
	}
	if len(s.Bodies) == 0 {
		return ErrNoBodies
	}

	names := make(map[string]int, len(s.Bodies))
	positions := make(map[[3]float64]string, len(s.Bodies))
	for i, d := range s.Bodies {
		if _, err := body.FromDescriptor(d); err != nil {
			return fmt.Errorf("body %d: %w", i, err)
		}
		if j, ok := names[d.Name]; ok {
			return fmt.Errorf("%w: %q (bodies %d and %d)", ErrDuplicateName, d.Name, j, i)
		}
		names[d.Name] = i
		if other, ok := positions[d.Position]; ok && s.Softening == 0 {
			return fmt.Errorf("%w: %s and %s", ErrCoincident, other, d.Name)
		}
		positions[d.Position] = d.Name
	}
	return nil
}

// BuildBodies converts the descriptors into bodies in internal units.
func (s *Scenario) BuildBodies() ([]*body.Body, error) {
	return body.FromDescriptors(s.Bodies)
}

// Frames is the number of whole frames covering Duration.
func (s *Scenario) Frames() int {
	return int(s.Duration/s.FrameDt + 0.5)
}

func (s *Scenario) Clone() *Scenario {
	c := *s
	c.Bodies = make([]body.Descriptor, len(s.Bodies))
	for i, d := range s.Bodies {
		c.Bodies[i] = d
		if d.Rotation != nil {
			r := *d.Rotation
			c.Bodies[i].Rotation = &r
		}
	}
	return &c
}
