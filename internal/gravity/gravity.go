// Package gravity implements the pairwise Newtonian force law.
//
// A [Field] accumulates accelerations into every body of a collection using
// the direct O(n²) sum, which is intended for small scenes. Pairs that
// coincide exactly are skipped and reported instead of producing NaN:
//
//	f := gravity.New(gravity.WithReporter(func(err error) { log.Print(err) }))
//	f.Apply(bodies)
//
// With [WithSoftening] the separation is padded by a minimum length and
// coincident pairs simply contribute nothing.
package gravity

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/units"
)

// ParallelThreshold is the smallest body count for which a multi-worker
// field actually fans out.
const ParallelThreshold = 64

var (
	// ErrSingular indicates two bodies at the same position.
	ErrSingular = errors.New("gravity: bodies share the same position")

	// ErrNonFinite indicates a pair force that overflowed or became NaN.
	ErrNonFinite = errors.New("gravity: non-finite force")
)

// SingularityError reports a pair whose force was skipped.
type SingularityError struct {
	I, J    int
	A, B    string
	Wrapped error
}

func (e *SingularityError) Error() string {
	return fmt.Sprintf("%v: %s (#%d) and %s (#%d)", e.Wrapped, e.A, e.I, e.B, e.J)
}

func (e *SingularityError) Unwrap() error {
	return e.Wrapped
}

type Field struct {
	g         float64
	softening float64
	workers   int
	report    func(error)

	mu            sync.Mutex
	singularities int
}

type Option func(*Field)

// WithConstant overrides the gravitational constant. Defaults to units.G.
func WithConstant(g float64) Option {
	return func(f *Field) { f.g = g }
}

// WithSoftening pads every separation by eps.
func WithSoftening(eps float64) Option {
	return func(f *Field) { f.softening = eps }
}

// WithWorkers splits the pair sum across n goroutines for large scenes.
func WithWorkers(n int) Option {
	return func(f *Field) {
		if n < 1 {
			n = 1
		}
		f.workers = n
	}
}

// WithReporter sets the sink for skipped-pair diagnostics.
func WithReporter(fn func(error)) Option {
	return func(f *Field) { f.report = fn }
}

var defaultLogger = log.New(os.Stderr, "gravity: ", log.LstdFlags)

func New(opts ...Option) *Field {
	f := &Field{
		g:       units.G,
		workers: 1,
		report:  func(err error) { defaultLogger.Print(err) },
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.report == nil {
		f.report = func(error) {}
	}
	return f
}

func (f *Field) Constant() float64  { return f.g }
func (f *Field) Softening() float64 { return f.softening }

// Singularities returns the number of pair contributions skipped so far.
func (f *Field) Singularities() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.singularities
}

// Apply adds the gravitational acceleration of every pair into each body's
// accumulator. Positions and velocities are not touched.
func (f *Field) Apply(bodies []*body.Body) {
	n := len(bodies)
	if f.workers > 1 && n >= ParallelThreshold {
		f.applyParallel(bodies)
		return
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			force, err := f.Pair(bodies[i], bodies[j])
			if err != nil {
				f.skip(i, j, bodies, err)
				continue
			}
			bodies[i].ApplyForce(force)
			bodies[j].ApplyForce(r3.Scale(-1, force))
		}
	}
}

// Pair returns the force exerted on a by b. The force on b is its exact
// negation.
func (f *Field) Pair(a, b *body.Body) (r3.Vec, error) {
	d := r3.Sub(a.Position, b.Position)
	dist2 := r3.Norm2(d)
	if dist2 == 0 {
		if f.softening > 0 {
			return r3.Vec{}, nil
		}
		return r3.Vec{}, ErrSingular
	}
	dist2 += f.softening * f.softening

	// mi·mj is commutative, so Pair(b, a) is the bitwise negation of Pair(a, b).
	force := r3.Scale(-f.g*(a.Mass*b.Mass)/(dist2*math.Sqrt(dist2)), d)
	if !body.FiniteVec(force) {
		return r3.Vec{}, ErrNonFinite
	}
	return force, nil
}

func (f *Field) skip(i, j int, bodies []*body.Body, err error) {
	f.mu.Lock()
	f.singularities++
	f.mu.Unlock()
	f.report(&SingularityError{I: i, J: j, A: bodies[i].Name, B: bodies[j].Name, Wrapped: err})
}

// applyParallel partitions the rows i across workers. Each worker owns a
// private acceleration buffer; buffers are summed once all workers are done.
func (f *Field) applyParallel(bodies []*body.Body) {
	n := len(bodies)
	workers := f.workers
	if workers > n {
		workers = n
	}

	partial := make([][]r3.Vec, workers)
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		partial[w] = make([]r3.Vec, n)
		go func(w int) {
			defer wg.Done()
			acc := partial[w]
			// Strided rows balance the triangular pair loop.
			for i := w; i < n; i += workers {
				for j := i + 1; j < n; j++ {
					force, err := f.Pair(bodies[i], bodies[j])
					if err != nil {
						f.skip(i, j, bodies, err)
						continue
					}
					acc[i] = r3.Add(acc[i], r3.Scale(1/bodies[i].Mass, force))
					acc[j] = r3.Sub(acc[j], r3.Scale(1/bodies[j].Mass, force))
				}
			}
		}(w)
	}
	wg.Wait()

	for i, b := range bodies {
		for w := 0; w < workers; w++ {
			b.Acceleration = r3.Add(b.Acceleration, partial[w][i])
		}
	}
}
