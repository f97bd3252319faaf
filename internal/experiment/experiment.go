// Package experiment runs a scenario headless and collects its diagnostics.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/config"
	"github.com/san-kum/orrery/internal/gravity"
	"github.com/san-kum/orrery/internal/metrics"
	"github.com/san-kum/orrery/internal/solver"
	"github.com/san-kum/orrery/internal/units"
)

// ErrDiverged indicates a body whose state stopped being finite.
var ErrDiverged = errors.New("experiment: state diverged")

// Singular pairs recur every sub-step once bodies coincide; reports beyond
// this rate are counted but not logged.
const (
	reportInterval = time.Second
	reportBurst    = 5
)

// boundFactor scales the initial extent of a scene into the radius used by
// the bounded metric.
const boundFactor = 10

// Result holds one sampled run. Series are indexed by sample.
type Result struct {
	Scenario   string
	Integrator string
	Bodies     []string

	Times           []float64
	Energy          []float64
	EnergyDrift     []float64
	Momentum        []float64
	AngularMomentum []float64
	Positions       [][]r3.Vec

	Metrics       map[string]float64
	Frames        int
	Elapsed       float64
	Singularities int
	WallTime      time.Duration
}

type Experiment struct {
	scenario *config.Scenario
	registry *Registry
	logger   *log.Logger

	bodies  []*body.Body
	field   *gravity.Field
	solver  *solver.Solver
	metrics []metrics.Metric
	drift   *metrics.EnergyDrift

	observers []solver.Observer
}

type Option func(*Experiment)

func WithLogger(l *log.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

// WithObserver is notified after every frame, sampled or not.
func WithObserver(o solver.Observer) Option {
	return func(e *Experiment) { e.observers = append(e.observers, o) }
}

// New validates the scenario and builds its scene, force law and solver.
func New(sc *config.Scenario, opts ...Option) (*Experiment, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{
		scenario: sc,
		logger:   log.New(os.Stderr, "orrery: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}

	bodies, err := sc.BuildBodies()
	if err != nil {
		return nil, err
	}
	e.bodies = bodies

	limiter := rate.NewLimiter(rate.Every(reportInterval), reportBurst)
	fieldOpts := []gravity.Option{
		gravity.WithReporter(func(err error) {
			if limiter.Allow() {
				e.logger.Print(err)
			}
		}),
		gravity.WithSoftening(sc.Softening),
	}
	if sc.Workers > 0 {
		fieldOpts = append(fieldOpts, gravity.WithWorkers(sc.Workers))
	}
	e.field = gravity.New(fieldOpts...)

	integ, err := e.registry.GetIntegrator(sc.Integrator, e.field)
	if err != nil {
		return nil, err
	}
	solverOpts := []solver.Option{
		solver.WithSubIterations(sc.SubIterations),
		solver.WithRotation(sc.Rotation),
	}
	for _, o := range e.observers {
		solverOpts = append(solverOpts, solver.WithObserver(o))
	}
	e.solver, err = solver.New(integ, solverOpts...)
	if err != nil {
		return nil, err
	}

	e.metrics = e.registry.DefaultMetrics(e.field, boundFactor*extent(bodies))
	for _, m := range e.metrics {
		if d, ok := m.(*metrics.EnergyDrift); ok {
			e.drift = d
		}
	}
	return e, nil
}

func (e *Experiment) Bodies() []*body.Body       { return e.bodies }
func (e *Experiment) Field() *gravity.Field      { return e.field }
func (e *Experiment) Solver() *solver.Solver     { return e.solver }
func (e *Experiment) Scenario() *config.Scenario { return e.scenario }

// Step advances the scene by one frame of days. It is the entry point for
// real-time drivers.
func (e *Experiment) Step(days float64) {
	e.solver.UpdatePositions(e.bodies, days)
}

// Run integrates the whole scenario duration in fixed frames, sampling
// every SampleEvery frames and at the end. Cancellation is checked between
// frames; the partial result is returned with ctx's error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	sc := e.scenario
	frames := sc.Frames()

	start := time.Now()
	result := &Result{
		Scenario:   sc.Name,
		Integrator: e.solver.Integrator().Kind().String(),
		Bodies:     make([]string, len(e.bodies)),
		Metrics:    make(map[string]float64),
	}
	for i, b := range e.bodies {
		result.Bodies[i] = b.Name
	}
	defer func() { result.WallTime = time.Since(start) }()

	for _, m := range e.metrics {
		m.Reset()
	}
	e.sample(result)

	for i := 1; i <= frames; i++ {
		select {
		case <-ctx.Done():
			e.finish(result)
			return result, ctx.Err()
		default:
		}

		e.Step(sc.FrameDt)
		result.Frames++

		if i%sc.SampleEvery == 0 || i == frames {
			e.sample(result)
			if err := e.checkFinite(); err != nil {
				e.finish(result)
				return result, err
			}
		}
	}

	e.finish(result)
	return result, nil
}

func (e *Experiment) sample(r *Result) {
	t := e.solver.Elapsed()
	for _, m := range e.metrics {
		m.Observe(e.bodies, t)
	}

	positions := make([]r3.Vec, len(e.bodies))
	for i, b := range e.bodies {
		positions[i] = b.Position
	}

	r.Times = append(r.Times, t)
	r.Energy = append(r.Energy, e.field.Energy(e.bodies))
	r.EnergyDrift = append(r.EnergyDrift, e.drift.Current())
	r.Momentum = append(r.Momentum, r3.Norm(gravity.Momentum(e.bodies)))
	r.AngularMomentum = append(r.AngularMomentum, r3.Norm(gravity.AngularMomentum(e.bodies)))
	r.Positions = append(r.Positions, positions)
}

func (e *Experiment) finish(r *Result) {
	r.Elapsed = e.solver.Elapsed()
	r.Singularities = e.field.Singularities()
	for k, v := range metrics.Values(e.metrics) {
		r.Metrics[k] = v
	}
}

func (e *Experiment) checkFinite() error {
	for _, b := range e.bodies {
		if !body.FiniteVec(b.Position) || !body.FiniteVec(b.Velocity) {
			return fmt.Errorf("%w: %s at t=%.4f days", ErrDiverged, b.Name, e.solver.Elapsed())
		}
	}
	return nil
}

// extent is the largest distance of any body from the centre of mass, at
// least one AU.
func extent(bodies []*body.Body) float64 {
	com := gravity.CenterOfMass(bodies)
	r := units.DistanceFromMeters(units.AU)
	for _, b := range bodies {
		r = math.Max(r, r3.Norm(r3.Sub(b.Position, com)))
	}
	return r
}
