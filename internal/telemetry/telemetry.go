// Package telemetry exposes a live simulation as Prometheus metrics.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/gravity"
	"github.com/san-kum/orrery/internal/metrics"
)

const namespace = "orrery"

// Recorder is a solver observer that mirrors the scene into collectors on
// its own registry. Collector updates are goroutine-safe; OnStep itself must
// be called from the frame loop only.
type Recorder struct {
	registry *prometheus.Registry
	field    *gravity.Field
	drift    *metrics.EnergyDrift

	elapsed       prometheus.Gauge
	energy        prometheus.Gauge
	energyDrift   prometheus.Gauge
	framesTotal   prometheus.Counter
	framesDropped prometheus.Counter
	singularPairs prometheus.Counter
	frameDuration prometheus.Histogram
	distance      *prometheus.GaugeVec
	speed         *prometheus.GaugeVec

	lastSingular int
}

func NewRecorder(field *gravity.Field) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		field:    field,
		drift:    metrics.NewEnergyDrift(field),
		elapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elapsed_days",
			Help:      "Simulated time since the epoch in days",
		}),
		energy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy",
			Help:      "Total mechanical energy in Earth masses AU^2/day^2",
		}),
		energyDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy_drift_ratio",
			Help:      "Relative deviation of total energy from the first frame",
		}),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames advanced by the solver",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames discarded by the frame clock",
		}),
		singularPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singular_pairs_total",
			Help:      "Pair force evaluations skipped for coincident bodies",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Wall-clock time spent integrating one frame",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		distance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "body_distance_au",
			Help:      "Distance of each body from the centre of mass",
		}, []string{"body"}),
		speed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "body_speed_au_per_day",
			Help:      "Speed of each body",
		}, []string{"body"}),
	}

	r.registry.MustRegister(
		r.elapsed,
		r.energy,
		r.energyDrift,
		r.framesTotal,
		r.framesDropped,
		r.singularPairs,
		r.frameDuration,
		r.distance,
		r.speed,
	)
	if field != nil {
		r.lastSingular = field.Singularities()
	}
	return r
}

func (r *Recorder) OnStep(bodies []*body.Body, elapsed float64) {
	r.framesTotal.Inc()
	r.elapsed.Set(elapsed)

	if r.field != nil {
		r.drift.Observe(bodies, elapsed)
		r.energy.Set(r.field.Energy(bodies))
		r.energyDrift.Set(r.drift.Current())

		n := r.field.Singularities()
		if n > r.lastSingular {
			r.singularPairs.Add(float64(n - r.lastSingular))
		}
		r.lastSingular = n
	}

	com := gravity.CenterOfMass(bodies)
	for _, b := range bodies {
		r.distance.WithLabelValues(b.Name).Set(r3.Norm(r3.Sub(b.Position, com)))
		r.speed.WithLabelValues(b.Name).Set(r3.Norm(b.Velocity))
	}
}

func (r *Recorder) DropFrame() {
	r.framesDropped.Inc()
}

func (r *Recorder) ObserveFrameDuration(d time.Duration) {
	r.frameDuration.Observe(d.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
