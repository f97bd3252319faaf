package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/config"
	"github.com/san-kum/orrery/internal/experiment"
	"github.com/san-kum/orrery/internal/frame"
	"github.com/san-kum/orrery/internal/solver"
	"github.com/san-kum/orrery/internal/storage"
	"github.com/san-kum/orrery/internal/telemetry"
	"github.com/san-kum/orrery/internal/viz"
)

const defaultPreset = "sun-earth"

var (
	dataDir    string
	configFile string
	theme      string

	integrator    string
	subSteps      int
	frameDt       float64
	duration      float64
	sampleEvery   int
	softening     float64
	workers       int
	rotation      bool
	noSave        bool
	serveAddr     string
	frameRate     int
	timeScale     float64
	maxFrameDelta time.Duration
	useTUI        bool
	outFile       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "orrery",
		Short:        "gravitational few-body simulator",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viz.SetTheme(theme)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".orrery", "data directory")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.ThemeSolar.Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario headless and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	scenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same scenario",
		Args:  cobra.MaximumNArgs(4),
		RunE:  compareIntegrators,
	}
	scenarioFlags(compareCmd)

	serveCmd := &cobra.Command{
		Use:   "serve [preset]",
		Short: "run a scenario in real time and expose Prometheus metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serveScenario,
	}
	scenarioFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9090", "metrics listen address")
	serveCmd.Flags().IntVar(&frameRate, "fps", 60, "frame rate")
	serveCmd.Flags().Float64Var(&timeScale, "time-scale", frame.DefaultTimeScale, "simulated days per wall-clock second")
	serveCmd.Flags().DurationVar(&maxFrameDelta, "max-frame", frame.DefaultMaxDelta, "frames at least this long are dropped")
	serveCmd.Flags().BoolVar(&useTUI, "tui", false, "show the live terminal dashboard")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [preset] [file]",
		Short: "write a preset as an editable YAML scenario",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  dumpPreset,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the diagnostics of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(runCmd, compareCmd, serveCmd, presetsCmd, dumpCmd, listCmd, plotCmd, exportJSONCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func scenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file path (yaml)")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (verlet, leapfrog, yoshida)")
	cmd.Flags().IntVar(&subSteps, "sub-steps", solver.DefaultSubIterations, "integrator sub-steps per frame")
	cmd.Flags().Float64Var(&frameDt, "dt", config.DefaultFrameDt, "frame delta in days")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration in days")
	cmd.Flags().IntVar(&sampleEvery, "sample", config.DefaultSampleEvery, "record diagnostics every n frames")
	cmd.Flags().Float64Var(&softening, "softening", 0, "softening length in AU")
	cmd.Flags().IntVar(&workers, "workers", 0, "force-pass workers for large scenes")
	cmd.Flags().BoolVar(&rotation, "rotation", true, "spin bodies about their axes")
}

// loadScenario picks the scenario from --config, the preset argument or
// the default preset, then applies the flags the user actually set.
func loadScenario(cmd *cobra.Command, registry *experiment.Registry, args []string) (*config.Scenario, error) {
	var sc *config.Scenario
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		sc = loaded
	default:
		name := defaultPreset
		if len(args) > 0 {
			name = args[0]
		}
		preset, err := registry.GetScenario(name)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(registry.ListScenarios(), ", "))
		}
		sc = preset
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		sc.Integrator = integrator
	}
	if flags.Changed("sub-steps") {
		sc.SubIterations = subSteps
	}
	if flags.Changed("dt") {
		sc.FrameDt = frameDt
	}
	if flags.Changed("time") {
		sc.Duration = duration
	}
	if flags.Changed("sample") {
		sc.SampleEvery = sampleEvery
	}
	if flags.Changed("softening") {
		sc.Softening = softening
	}
	if flags.Changed("workers") {
		sc.Workers = workers
	}
	if flags.Changed("rotation") {
		sc.Rotation = rotation
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScenario(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	sc, err := loadScenario(cmd, registry, args)
	if err != nil {
		return err
	}

	exp, err := experiment.New(sc, experiment.WithRegistry(registry))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s with %s (%d frames of %.4g days, %d sub-steps)\n",
		sc.Name, sc.Integrator, sc.Frames(), sc.FrameDt, sc.SubIterations)

	result, err := exp.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		fmt.Println("interrupted, keeping partial result")
	}

	fmt.Println(viz.Summary(result))
	fmt.Printf("wall time: %s\n", result.WallTime.Round(time.Millisecond))

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(sc, result)
	if err != nil {
		return err
	}
	fmt.Printf("saved run: %s\n", runID)
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	var names []string
	if len(args) > 1 {
		names = args[1:]
	} else {
		names = registry.ListIntegrators()
	}

	sc, err := loadScenario(cmd, registry, args[:min(len(args), 1)])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing integrators for %s (dt=%.4g days, %d sub-steps, duration=%.1f days)\n\n",
		sc.Name, sc.FrameDt, sc.SubIterations, sc.Duration)

	start := time.Now()
	results, err := experiment.Compare(ctx, sc, names, experiment.WithRegistry(registry))
	if err != nil {
		return err
	}

	fmt.Println(viz.CompareTable(results))
	fmt.Printf("wall time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func serveScenario(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	sc, err := loadScenario(cmd, registry, args)
	if err != nil {
		return err
	}

	clock := frame.Clock{TimeScale: timeScale, MaxDelta: maxFrameDelta}
	if err := clock.Validate(); err != nil {
		return err
	}

	// Diagnostics would corrupt the dashboard's alternate screen.
	logger := log.New(os.Stderr, "orrery: ", log.LstdFlags)
	if useTUI {
		logger.SetOutput(io.Discard)
	}

	exp, err := experiment.New(sc, experiment.WithLogger(logger), experiment.WithRegistry(registry))
	if err != nil {
		return err
	}
	recorder := telemetry.NewRecorder(exp.Field())
	exp.Solver().AddObserver(recorder)

	ctx, cancel := signalContext()
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		err := recorder.Serve(ctx, serveAddr)
		if err != nil {
			cancel()
		}
		serveErr <- err
	}()

	if useTUI {
		err := viz.RunDashboard(viz.NewDashboard(exp, clock, frameRate, recorder))
		cancel()
		if serr := <-serveErr; serr != nil && err == nil {
			err = serr
		}
		return err
	}

	logger.Printf("serving %s metrics on %s/metrics, ctrl+c to stop", sc.Name, serveAddr)
	clock.OnDrop = func(time.Duration) { recorder.DropFrame() }

	lastReport := time.Now()
	frames, err := clock.Run(ctx, frameRate, func(days float64) {
		start := time.Now()
		exp.Step(days)
		recorder.ObserveFrameDuration(time.Since(start))

		if time.Since(lastReport) >= 5*time.Second {
			lastReport = time.Now()
			s := exp.Solver()
			logger.Printf("epoch %s, %.2f days, %d frames",
				frame.Date(s.Elapsed()).Format("2006-01-02 15:04"), s.Elapsed(), s.Steps())
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if serr := <-serveErr; serr != nil {
		return serr
	}

	logger.Printf("stopped after %d frames, %.2f simulated days", frames, exp.Solver().Elapsed())
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	fmt.Println("presets:")
	for _, name := range registry.ListScenarios() {
		sc, err := registry.GetScenario(name)
		if err != nil {
			return err
		}
		names := make([]string, len(sc.Bodies))
		for i, d := range sc.Bodies {
			names[i] = d.Name
			if d.Kind == body.Moon {
				names[i] += " (moon)"
			}
		}
		fmt.Printf("  %-16s %-9s %6.1f days  %s\n", name, sc.Integrator, sc.Duration, strings.Join(names, ", "))
	}
	return nil
}

func dumpPreset(cmd *cobra.Command, args []string) error {
	sc, err := experiment.NewRegistry().GetScenario(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		data, err := yaml.Marshal(sc)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := config.Save(args[1], sc); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	fmt.Println(viz.RunsTable(runs))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", result.Scenario)
	fmt.Printf("integrator: %s\n", result.Integrator)
	fmt.Printf("samples: %d\n\n", len(result.Times))
	if len(result.Times) == 0 {
		return nil
	}

	fmt.Print(viz.Plots(result))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	result, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	if outFile != "" {
		return storage.ExportJSON(outFile, runID, result)
	}
	return storage.ExportJSONStdout(runID, result)
}
