package integrators_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/gravity"
	"github.com/san-kum/orrery/internal/integrators"
)

type countingForce struct {
	inner *gravity.Field
	calls int
}

func (c *countingForce) Apply(bodies []*body.Body) {
	c.calls++
	c.inner.Apply(bodies)
}

func mustNew(kind integrators.Kind, force integrators.ForceLaw) integrators.Integrator {
	integ, err := integrators.New(kind, force)
	Expect(err).NotTo(HaveOccurred())
	return integ
}

var _ = Describe("Integrators", func() {
	Describe("selection", func() {
		It("parses every kind by name", func() {
			for _, k := range integrators.Kinds() {
				parsed, err := integrators.Parse(k.String())
				Expect(err).NotTo(HaveOccurred())
				Expect(parsed).To(Equal(k))
			}
			k, err := integrators.Parse(" Yoshida ")
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(integrators.KindYoshida))
		})

		It("rejects unknown names and kinds", func() {
			_, err := integrators.Parse("rk4")
			Expect(err).To(MatchError(integrators.ErrUnknownIntegrator))
			_, err = integrators.New(integrators.Kind(42), gravity.New())
			Expect(err).To(MatchError(integrators.ErrUnknownIntegrator))
			_, err = integrators.NewByName("euler", gravity.New())
			Expect(err).To(MatchError(integrators.ErrUnknownIntegrator))
		})

		It("builds the variant that matches the kind", func() {
			for _, k := range integrators.Kinds() {
				integ, err := integrators.NewByName(k.String(), gravity.New())
				Expect(err).NotTo(HaveOccurred())
				Expect(integ.Kind()).To(Equal(k))
			}
		})
	})

	DescribeTable("force evaluations per sub-step",
		func(kind integrators.Kind, expected int) {
			force := &countingForce{inner: gravity.New()}
			bodies, _ := circularOrbit()
			mustNew(kind, force).UpdatePositions(bodies, 0.5)
			Expect(force.calls).To(Equal(expected))
		},
		Entry("verlet", integrators.KindVerlet, 1),
		Entry("leapfrog", integrators.KindLeapfrog, 2),
		Entry("yoshida", integrators.KindYoshida, 3),
	)

	for _, kind := range integrators.Kinds() {
		Context(kind.String(), func() {
			It("leaves accelerations at zero", func() {
				bodies := triangle()
				integ := mustNew(kind, gravity.New(gravity.WithConstant(1)))
				for i := 0; i < 10; i++ {
					integ.UpdatePositions(bodies, 0.01)
					for _, b := range bodies {
						Expect(b.Acceleration).To(Equal(r3.Vec{}))
					}
				}
			})

			It("conserves total momentum", func() {
				bodies := triangle()
				p0 := gravity.Momentum(bodies)
				scale := momentumScale(bodies)
				integ := mustNew(kind, gravity.New(gravity.WithConstant(1)))

				for i := 0; i < 2000; i++ {
					integ.UpdatePositions(bodies, 0.001)
				}
				drift := r3.Norm(r3.Sub(gravity.Momentum(bodies), p0))
				Expect(drift).To(BeNumerically("<", 1e-9*scale))
			})

			It("is deterministic", func() {
				a := triangle()
				b := body.CloneAll(a)
				ia := mustNew(kind, gravity.New(gravity.WithConstant(1)))
				ib := mustNew(kind, gravity.New(gravity.WithConstant(1)))

				dts := []float64{0.01, 0.02, 0.005, 0.01, -0.003}
				for i := 0; i < 200; i++ {
					dt := dts[i%len(dts)]
					ia.UpdatePositions(a, dt)
					ib.UpdatePositions(b, dt)
				}
				for i := range a {
					Expect(a[i].Position).To(Equal(b[i].Position))
					Expect(a[i].Velocity).To(Equal(b[i].Velocity))
				}
			})

			It("does not move a resting isolated body", func() {
				lone, err := body.New("lone", body.Moon, 3, r3.Vec{X: 1, Y: -2, Z: 0.5}, r3.Vec{}, nil)
				Expect(err).NotTo(HaveOccurred())
				integ := mustNew(kind, gravity.New())
				for i := 0; i < 100; i++ {
					integ.UpdatePositions([]*body.Body{lone}, 0.1)
				}
				Expect(lone.Position).To(Equal(r3.Vec{X: 1, Y: -2, Z: 0.5}))
				Expect(lone.Velocity).To(Equal(r3.Vec{}))
			})

			It("moves a free body in a straight line", func() {
				free, err := body.New("free", body.Planet, 1, r3.Vec{}, r3.Vec{X: 1, Y: 2}, nil)
				Expect(err).NotTo(HaveOccurred())
				integ := mustNew(kind, gravity.New())
				for i := 0; i < 10; i++ {
					integ.UpdatePositions([]*body.Body{free}, 0.1)
				}
				Expect(free.Position.X).To(BeNumerically("~", 1, 1e-12))
				Expect(free.Position.Y).To(BeNumerically("~", 2, 1e-12))
				Expect(free.Velocity.X).To(BeNumerically("~", 1, 1e-12))
			})
		})
	}

	DescribeTable("energy stays bounded on a circular orbit",
		func(kind integrators.Kind, dt float64, orbits int, tolerance float64) {
			bodies, period := circularOrbit()
			field := gravity.New()
			e0 := field.Energy(bodies)
			integ := mustNew(kind, field)

			steps := int(float64(orbits) * period / dt)
			maxDev := 0.0
			for i := 0; i < steps; i++ {
				integ.UpdatePositions(bodies, dt)
				maxDev = math.Max(maxDev, math.Abs((field.Energy(bodies)-e0)/e0))
			}
			Expect(maxDev).To(BeNumerically("<", tolerance))
		},
		Entry("leapfrog", integrators.KindLeapfrog, 1.0, 20, 1e-3),
		Entry("yoshida", integrators.KindYoshida, 1.0, 20, 1e-5),
		Entry("verlet", integrators.KindVerlet, 1.0, 20, 1e-2),
	)

	It("returns the Yoshida orbit to its start after one period", func() {
		bodies, period := circularOrbit()
		start := body.CloneAll(bodies)
		integ := mustNew(integrators.KindYoshida, gravity.New())

		const steps = 3650
		dt := period / steps
		for i := 0; i < steps; i++ {
			integ.UpdatePositions(bodies, dt)
		}

		earth := bodies[1]
		Expect(r3.Norm(r3.Sub(earth.Position, start[1].Position))).To(BeNumerically("<", 1e-3))
		Expect(r3.Norm(r3.Sub(earth.Velocity, start[1].Velocity))).To(BeNumerically("<", 1e-5))
	})

	DescribeTable("time reversibility",
		func(kind integrators.Kind) {
			bodies := triangle()
			start := body.CloneAll(bodies)
			integ := mustNew(kind, gravity.New(gravity.WithConstant(1)))

			for i := 0; i < 100; i++ {
				integ.UpdatePositions(bodies, 0.01)
			}
			for i := 0; i < 100; i++ {
				integ.UpdatePositions(bodies, -0.01)
			}
			for i := range bodies {
				Expect(r3.Norm(r3.Sub(bodies[i].Position, start[i].Position))).To(BeNumerically("<", 1e-10))
				Expect(r3.Norm(r3.Sub(bodies[i].Velocity, start[i].Velocity))).To(BeNumerically("<", 1e-10))
			}
		},
		Entry("leapfrog", integrators.KindLeapfrog),
		Entry("yoshida", integrators.KindYoshida),
	)

	It("reverses a single Leapfrog step", func() {
		bodies := triangle()
		start := body.CloneAll(bodies)
		integ := mustNew(integrators.KindLeapfrog, gravity.New(gravity.WithConstant(1)))

		integ.UpdatePositions(bodies, 0.05)
		integ.UpdatePositions(bodies, -0.05)
		for i := range bodies {
			Expect(r3.Norm(r3.Sub(bodies[i].Position, start[i].Position))).To(BeNumerically("<", 1e-13))
			Expect(r3.Norm(r3.Sub(bodies[i].Velocity, start[i].Velocity))).To(BeNumerically("<", 1e-13))
		}
	})

	Describe("Verlet", func() {
		It("primes the previous step lazily and forgets it on Reset", func() {
			v := integrators.NewVerlet(gravity.New(gravity.WithConstant(1)))
			_, primed := v.PrevDt()
			Expect(primed).To(BeFalse())

			bodies := triangle()
			v.UpdatePositions(bodies, 0.01)
			prev, primed := v.PrevDt()
			Expect(primed).To(BeTrue())
			Expect(prev).To(Equal(0.01))

			v.UpdatePositions(bodies, 0.02)
			prev, _ = v.PrevDt()
			Expect(prev).To(Equal(0.02))

			v.Reset()
			_, primed = v.PrevDt()
			Expect(primed).To(BeFalse())
		})

		It("uses the previous step length in the position update", func() {
			force := gravity.New(gravity.WithConstant(1))
			bodies := triangle()
			scratch := body.CloneAll(bodies)

			v := integrators.NewVerlet(force)
			v.UpdatePositions(bodies, 0.01)
			v.UpdatePositions(bodies, 0.02)

			// Replay the second step by hand.
			integrators.NewVerlet(force).UpdatePositions(scratch, 0.01)
			force.Apply(scratch)
			for i, b := range scratch {
				expected := r3.Add(b.Position, r3.Add(
					r3.Scale(0.02, b.Velocity),
					r3.Scale(0.02*(0.02+0.01)/2, b.Acceleration),
				))
				Expect(r3.Norm(r3.Sub(bodies[i].Position, expected))).To(BeNumerically("<", 1e-15))
			}
		})

		It("rebuilds velocity from the displacement", func() {
			bodies := triangle()
			before := body.CloneAll(bodies)
			integrators.NewVerlet(gravity.New(gravity.WithConstant(1))).UpdatePositions(bodies, 0.01)

			for i, b := range bodies {
				expected := r3.Scale(1/0.01, r3.Sub(b.Position, before[i].Position))
				Expect(r3.Norm(r3.Sub(b.Velocity, expected))).To(BeNumerically("<", 1e-12))
			}
		})

		It("treats a zero step as a no-op", func() {
			bodies := triangle()
			before := body.CloneAll(bodies)
			v := integrators.NewVerlet(gravity.New(gravity.WithConstant(1)))
			v.UpdatePositions(bodies, 0)

			for i, b := range bodies {
				Expect(b.Position).To(Equal(before[i].Position))
				Expect(b.Velocity).To(Equal(before[i].Velocity))
				Expect(body.FiniteVec(b.Velocity)).To(BeTrue())
			}
			_, primed := v.PrevDt()
			Expect(primed).To(BeFalse())
		})
	})
})
