package gravity_test

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/gravity"
	"github.com/san-kum/orrery/internal/units"
)

func mustBody(name string, mass float64, pos, vel r3.Vec) *body.Body {
	b, err := body.New(name, body.Planet, mass, pos, vel, nil)
	Expect(err).NotTo(HaveOccurred())
	return b
}

func randomScene(rng *rand.Rand, n int) []*body.Body {
	bodies := make([]*body.Body, n)
	for i := range bodies {
		bodies[i] = mustBody("b", 0.5+rng.Float64(),
			r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()},
			r3.Vec{X: rng.NormFloat64() * 0.01, Y: rng.NormFloat64() * 0.01})
	}
	return bodies
}

var _ = Describe("Field", func() {
	var (
		reported []error
		field    *gravity.Field
	)

	BeforeEach(func() {
		reported = nil
		field = gravity.New(gravity.WithReporter(func(err error) { reported = append(reported, err) }))
	})

	It("uses the astronomical constant by default", func() {
		Expect(field.Constant()).To(Equal(units.G))
		Expect(field.Softening()).To(BeZero())
	})

	Describe("Pair", func() {
		It("obeys Newton's third law exactly", func() {
			rng := rand.New(rand.NewSource(7))
			for k := 0; k < 100; k++ {
				scene := randomScene(rng, 2)
				fab, err := field.Pair(scene[0], scene[1])
				Expect(err).NotTo(HaveOccurred())
				fba, err := field.Pair(scene[1], scene[0])
				Expect(err).NotTo(HaveOccurred())
				Expect(fab).To(Equal(r3.Scale(-1, fba)))
			}
		})

		It("is attractive and follows the inverse square law", func() {
			g := gravity.New(gravity.WithConstant(1))
			a := mustBody("a", 2, r3.Vec{}, r3.Vec{})
			b := mustBody("b", 3, r3.Vec{X: 2}, r3.Vec{})

			f, err := g.Pair(a, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.X).To(BeNumerically("~", 6.0/4.0, 1e-15))
			Expect(f.Y).To(BeZero())
			Expect(f.Z).To(BeZero())
		})

		It("rejects coincident bodies without softening", func() {
			a := mustBody("a", 1, r3.Vec{X: 1}, r3.Vec{})
			b := mustBody("b", 1, r3.Vec{X: 1}, r3.Vec{})
			_, err := field.Pair(a, b)
			Expect(err).To(MatchError(gravity.ErrSingular))
		})

		It("returns zero force for coincident bodies with softening", func() {
			soft := gravity.New(gravity.WithSoftening(1e-3))
			a := mustBody("a", 1, r3.Vec{X: 1}, r3.Vec{})
			b := mustBody("b", 1, r3.Vec{X: 1}, r3.Vec{})
			f, err := soft.Pair(a, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(r3.Vec{}))
		})

		It("caps the force with softening", func() {
			soft := gravity.New(gravity.WithConstant(1), gravity.WithSoftening(0.1))
			hard := gravity.New(gravity.WithConstant(1))
			a := mustBody("a", 1, r3.Vec{}, r3.Vec{})
			b := mustBody("b", 1, r3.Vec{X: 0.01}, r3.Vec{})

			fs, _ := soft.Pair(a, b)
			fh, _ := hard.Pair(a, b)
			Expect(r3.Norm(fs)).To(BeNumerically("<", r3.Norm(fh)))
		})
	})

	Describe("Apply", func() {
		It("produces equal and opposite forces for every pair", func() {
			rng := rand.New(rand.NewSource(11))
			scene := randomScene(rng, 2)
			field.Apply(scene)

			fa := r3.Scale(scene[0].Mass, scene[0].Acceleration)
			fb := r3.Scale(scene[1].Mass, scene[1].Acceleration)
			Expect(r3.Norm(r3.Add(fa, fb))).To(BeNumerically("<", 1e-12*r3.Norm(fa)))
		})

		It("sums to zero net force over the whole scene", func() {
			rng := rand.New(rand.NewSource(3))
			scene := randomScene(rng, 8)
			field.Apply(scene)

			var net r3.Vec
			scale := 0.0
			for _, b := range scene {
				f := r3.Scale(b.Mass, b.Acceleration)
				net = r3.Add(net, f)
				scale += r3.Norm(f)
			}
			Expect(r3.Norm(net)).To(BeNumerically("<", 1e-12*scale))
		})

		It("leaves positions and velocities alone", func() {
			rng := rand.New(rand.NewSource(5))
			scene := randomScene(rng, 4)
			before := body.CloneAll(scene)
			field.Apply(scene)

			for i := range scene {
				Expect(scene[i].Position).To(Equal(before[i].Position))
				Expect(scene[i].Velocity).To(Equal(before[i].Velocity))
			}
		})

		It("applies no force to an isolated body", func() {
			lone := mustBody("lone", 1, r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{})
			field.Apply([]*body.Body{lone})
			Expect(lone.Acceleration).To(Equal(r3.Vec{}))
			Expect(reported).To(BeEmpty())
		})

		It("skips and reports coincident pairs without NaN", func() {
			a := mustBody("Earth", 1, r3.Vec{X: 1}, r3.Vec{})
			b := mustBody("Ghost", 1, r3.Vec{X: 1}, r3.Vec{})
			c := mustBody("Sun", 1000, r3.Vec{}, r3.Vec{})
			field.Apply([]*body.Body{a, b, c})

			Expect(reported).To(HaveLen(1))
			var se *gravity.SingularityError
			Expect(errors.As(reported[0], &se)).To(BeTrue())
			Expect(se.I).To(Equal(0))
			Expect(se.J).To(Equal(1))
			Expect(se.Error()).To(ContainSubstring("Earth"))
			Expect(errors.Is(reported[0], gravity.ErrSingular)).To(BeTrue())
			Expect(field.Singularities()).To(Equal(1))

			for _, bd := range []*body.Body{a, b, c} {
				Expect(body.FiniteVec(bd.Acceleration)).To(BeTrue())
			}
			Expect(a.Acceleration.X).To(BeNumerically("<", 0))
		})

		It("matches the serial pass when parallelised", func() {
			rng := rand.New(rand.NewSource(42))
			serial := randomScene(rng, gravity.ParallelThreshold+17)
			parallel := body.CloneAll(serial)

			field.Apply(serial)
			gravity.New(gravity.WithWorkers(4)).Apply(parallel)

			scale := 0.0
			for _, b := range serial {
				scale = math.Max(scale, r3.Norm(b.Acceleration))
			}
			for i := range serial {
				diff := r3.Norm(r3.Sub(serial[i].Acceleration, parallel[i].Acceleration))
				Expect(diff).To(BeNumerically("<=", 1e-10*scale))
			}
		})
	})

	Describe("diagnostics", func() {
		It("computes the energy of a bound pair", func() {
			g := gravity.New(gravity.WithConstant(1))
			a := mustBody("a", 1, r3.Vec{}, r3.Vec{})
			b := mustBody("b", 1, r3.Vec{X: 1}, r3.Vec{Y: 1})

			bodies := []*body.Body{a, b}
			Expect(gravity.KineticEnergy(bodies)).To(BeNumerically("~", 0.5, 1e-15))
			Expect(gravity.PotentialEnergy(bodies, 1, 0)).To(BeNumerically("~", -1, 1e-15))
			Expect(g.Energy(bodies)).To(BeNumerically("~", -0.5, 1e-15))
		})

		It("computes momentum, angular momentum and the centre of mass", func() {
			a := mustBody("a", 3, r3.Vec{}, r3.Vec{Y: -1})
			b := mustBody("b", 1, r3.Vec{X: 4}, r3.Vec{Y: 3})
			bodies := []*body.Body{a, b}

			Expect(gravity.Momentum(bodies)).To(Equal(r3.Vec{}))
			Expect(gravity.AngularMomentum(bodies)).To(Equal(r3.Vec{Z: 12}))
			Expect(gravity.CenterOfMass(bodies)).To(Equal(r3.Vec{X: 1}))
			Expect(gravity.CenterOfMass(nil)).To(Equal(r3.Vec{}))
			Expect(math.IsNaN(gravity.PotentialEnergy(bodies, 1, 0))).To(BeFalse())
		})
	})
})
