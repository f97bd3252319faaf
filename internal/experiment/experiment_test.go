package experiment_test

import (
	"bytes"
	"context"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/config"
	"github.com/san-kum/orrery/internal/experiment"
	"github.com/san-kum/orrery/internal/integrators"
	"github.com/san-kum/orrery/internal/solver"
)

func shortRun(name string) *config.Scenario {
	sc := config.GetPreset(name)
	Expect(sc).NotTo(BeNil())
	sc.Duration = 30
	sc.FrameDt = 0.5
	sc.SampleEvery = 4
	return sc
}

var _ = Describe("Registry", func() {
	r := experiment.NewRegistry()

	It("lists every integrator", func() {
		Expect(r.ListIntegrators()).To(Equal([]string{"leapfrog", "verlet", "yoshida"}))
	})

	It("builds integrators by name", func() {
		for _, name := range r.ListIntegrators() {
			integ, err := r.GetIntegrator(name, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.Kind().String()).To(Equal(name))
		}
		_, err := r.GetIntegrator("rk45", nil)
		Expect(err).To(MatchError(integrators.ErrUnknownIntegrator))
	})

	It("serves the presets as scenarios", func() {
		Expect(r.ListScenarios()).To(Equal(config.ListPresets()))
		sc, err := r.GetScenario("sun-earth")
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.Bodies).To(HaveLen(2))
		_, err = r.GetScenario("pluto")
		Expect(err).To(MatchError(experiment.ErrUnknownScenario))
	})
})

var _ = Describe("Experiment", func() {
	It("rejects an invalid scenario before building anything", func() {
		sc := shortRun("sun-earth")
		sc.SubIterations = 0
		_, err := experiment.New(sc)
		Expect(err).To(MatchError(solver.ErrSubIterations))
	})

	It("samples a run at the configured cadence", func() {
		exp, err := experiment.New(shortRun("sun-earth"))
		Expect(err).NotTo(HaveOccurred())

		res, err := exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		// 60 frames sampled every 4 plus the initial state.
		Expect(res.Frames).To(Equal(60))
		Expect(res.Times).To(HaveLen(16))
		Expect(res.Times[0]).To(BeZero())
		Expect(res.Times[1]).To(Equal(2.0))
		Expect(res.Elapsed).To(BeNumerically("~", 30, 1e-9))
		Expect(res.Positions).To(HaveLen(len(res.Times)))
		Expect(res.Positions[0]).To(HaveLen(2))
		Expect(res.Bodies).To(Equal([]string{"Sun", "Earth"}))
		Expect(res.Integrator).To(Equal("leapfrog"))
		Expect(res.EnergyDrift[0]).To(BeZero())
	})

	It("keeps the Earth-Moon system bound and conservative", func() {
		sc := config.GetPreset("earth-moon")
		exp, err := experiment.New(sc)
		Expect(err).NotTo(HaveOccurred())

		res, err := exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Metrics["energy_drift"]).To(BeNumerically("<", 1e-6))
		Expect(res.Metrics["momentum_drift"]).To(BeNumerically("<", 1e-9))
		Expect(res.Metrics["angular_momentum_drift"]).To(BeNumerically("<", 1e-9))
		Expect(res.Metrics["bounded"]).To(Equal(1.0))
		Expect(res.Metrics["energy"]).To(BeNumerically("<", 0))
		Expect(res.Metrics["energy"]).To(BeNumerically("~", res.Energy[0], 1e-6*-res.Energy[0]))
		Expect(res.Singularities).To(BeZero())
		Expect(res.WallTime).To(BeNumerically(">", 0))
	})

	It("spins bodies only when rotation is on", func() {
		sc := shortRun("sun-earth")
		sc.Rotation = false
		exp, err := experiment.New(sc)
		Expect(err).NotTo(HaveOccurred())
		exp.Step(0.25)
		Expect(exp.Bodies()[1].Spin()).To(BeZero())

		exp, err = experiment.New(shortRun("sun-earth"))
		Expect(err).NotTo(HaveOccurred())
		exp.Step(0.25)
		Expect(exp.Bodies()[1].Spin()).NotTo(BeZero())
	})

	It("stops between frames when cancelled", func() {
		exp, err := experiment.New(shortRun("inner"))
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := exp.Run(ctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Frames).To(BeZero())
		Expect(res.Times).To(HaveLen(1))
	})

	It("notifies observers every frame", func() {
		frames := 0
		exp, err := experiment.New(shortRun("sun-earth"), experiment.WithObserver(
			solver.ObserverFunc(func([]*body.Body, float64) { frames++ }),
		))
		Expect(err).NotTo(HaveOccurred())
		_, err = exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(frames).To(Equal(60))
	})

	It("logs and counts singular pairs with no softening", func() {
		var buf bytes.Buffer
		sc := shortRun("sun-earth")
		sc.Duration = 1
		exp, err := experiment.New(sc, experiment.WithLogger(log.New(&buf, "", 0)))
		Expect(err).NotTo(HaveOccurred())

		bodies := exp.Bodies()
		bodies[1].Position = bodies[0].Position
		bodies[1].Velocity = bodies[0].Velocity

		res, err := exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Singularities).To(BeNumerically(">", 0))
		Expect(res.Metrics["singular_pairs"]).To(BeNumerically(">", 0))
		Expect(buf.String()).To(ContainSubstring("Sun"))
	})
})

var _ = Describe("Compare", func() {
	It("runs each integrator on its own copy of the scene", func() {
		sc := shortRun("earth-moon")
		names := []string{"verlet", "leapfrog", "yoshida"}
		results, err := experiment.Compare(context.Background(), sc, names)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for i, res := range results {
			Expect(res.Integrator).To(Equal(names[i]))
			Expect(res.Frames).To(Equal(60))
			Expect(res.WallTime).To(BeNumerically(">", 0))
		}
		Expect(results[2].Metrics["energy_drift"]).To(BeNumerically("<", results[0].Metrics["energy_drift"]))
		Expect(sc.Integrator).To(Equal("yoshida"))
	})

	It("fails fast on an unknown integrator", func() {
		_, err := experiment.Compare(context.Background(), shortRun("sun-earth"), []string{"leapfrog", "euler"})
		Expect(err).To(MatchError(integrators.ErrUnknownIntegrator))
	})
})
