package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/orrery/internal/experiment"
	"github.com/san-kum/orrery/internal/frame"
	"github.com/san-kum/orrery/internal/integrators"
	"github.com/san-kum/orrery/internal/metrics"
)

const historyCapacity = 600

type TickMsg time.Time

// FrameRecorder receives frame accounting from the dashboard.
type FrameRecorder interface {
	DropFrame()
	ObserveFrameDuration(d time.Duration)
}

// Dashboard drives an experiment from wall-clock ticks and shows its state.
type Dashboard struct {
	exp      *experiment.Experiment
	registry *experiment.Registry
	clock    frame.Clock
	fps      int
	recorder FrameRecorder

	drift         *metrics.EnergyDrift
	driftHistory  []float64
	energyHistory []float64

	last     time.Time
	running  bool
	dropped  int
	showHelp bool
	status   string
}

func NewDashboard(exp *experiment.Experiment, clock frame.Clock, fps int, recorder FrameRecorder) *Dashboard {
	if fps <= 0 {
		fps = 60
	}
	d := &Dashboard{
		exp:           exp,
		registry:      experiment.NewRegistry(),
		clock:         clock,
		fps:           fps,
		recorder:      recorder,
		drift:         metrics.NewEnergyDrift(exp.Field()),
		driftHistory:  make([]float64, 0, historyCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
		running:       true,
	}
	d.drift.Observe(exp.Bodies(), exp.Solver().Elapsed())
	return d
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(d.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (d *Dashboard) Init() tea.Cmd {
	return d.tick()
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		case " ":
			d.running = !d.running
		case "i":
			d.cycleIntegrator()
		case "+", "=":
			d.adjustSubIterations(1)
		case "-", "_":
			d.adjustSubIterations(-1)
		case ">":
			d.clock.TimeScale = math.Min(d.clock.TimeScale*2, frame.MaxTimeScale)
		case "<":
			d.clock.TimeScale /= 2
		case "t":
			NextTheme()
		case "?":
			d.showHelp = !d.showHelp
		}
	case TickMsg:
		d.advance(time.Time(msg))
		return d, d.tick()
	}
	return d, nil
}

// advance steps the scene by the simulated equivalent of the wall time since
// the previous tick. The first tick only starts the clock.
func (d *Dashboard) advance(now time.Time) {
	if d.last.IsZero() {
		d.last = now
		return
	}
	delta := now.Sub(d.last)
	d.last = now
	if !d.running {
		return
	}

	days, ok := d.clock.Accept(delta)
	if !ok {
		d.dropped++
		if d.recorder != nil {
			d.recorder.DropFrame()
		}
		return
	}

	start := time.Now()
	d.exp.Step(days)
	if d.recorder != nil {
		d.recorder.ObserveFrameDuration(time.Since(start))
	}

	bodies := d.exp.Bodies()
	d.drift.Observe(bodies, d.exp.Solver().Elapsed())
	d.energyHistory = appendCapped(d.energyHistory, d.exp.Field().Energy(bodies))
	d.driftHistory = appendCapped(d.driftHistory, d.drift.Current())
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

// cycleIntegrator swaps in the next integrator kind. The solver resets its
// step history.
func (d *Dashboard) cycleIntegrator() {
	s := d.exp.Solver()
	kinds := integrators.Kinds()
	next := kinds[0]
	for i, k := range kinds {
		if k == s.Integrator().Kind() {
			next = kinds[(i+1)%len(kinds)]
			break
		}
	}
	integ, err := d.registry.GetIntegrator(next.String(), d.exp.Field())
	if err == nil {
		err = s.SetIntegrator(integ)
	}
	if err != nil {
		d.status = err.Error()
		return
	}
	d.status = "integrator: " + next.String()
}

func (d *Dashboard) adjustSubIterations(delta int) {
	s := d.exp.Solver()
	if err := s.SetSubIterations(s.SubIterations() + delta); err != nil {
		d.status = err.Error()
		return
	}
	d.status = fmt.Sprintf("sub-steps: %d", s.SubIterations())
}

func (d *Dashboard) View() string {
	s := d.exp.Solver()
	sc := d.exp.Scenario()

	var b strings.Builder
	b.WriteString(titleStyle().Render(strings.ToUpper(sc.Name)) + "  ")
	if d.running {
		b.WriteString(statusStyle(true).Render("RUNNING"))
	} else {
		b.WriteString(statusStyle(false).Render("PAUSED"))
	}
	b.WriteString("\n\n")

	b.WriteString(row("epoch", frame.Date(s.Elapsed()).Format(dateLayout)))
	b.WriteString(row("elapsed", fmt.Sprintf("%.3f days", s.Elapsed())))
	b.WriteString(row("integrator", s.Integrator().Kind().String()))
	b.WriteString(row("sub-steps", fmt.Sprintf("%d", s.SubIterations())))
	b.WriteString(row("time scale", fmt.Sprintf("%.3g days/s", d.clock.TimeScale)))
	b.WriteString(row("frames", fmt.Sprintf("%d (%d dropped)", s.Steps(), d.dropped)))
	b.WriteString(row("singular", fmt.Sprintf("%d", d.exp.Field().Singularities())))
	b.WriteString(labelStyle().Render("energy drift") + driftStyle(math.Abs(d.drift.Current())).Render(fmt.Sprintf("%+.3e", d.drift.Current())) + "\n")
	b.WriteString(labelStyle().Render("") + SparklineChart(d.driftHistory, 40) + "\n")

	if len(d.energyHistory) > 1 {
		b.WriteString("\n" + SeriesPlot(d.energyHistory, "energy", 40, 4) + "\n")
	}

	b.WriteString("\n" + BodyTable(d.exp.Bodies()) + "\n")
	if d.status != "" {
		b.WriteString(hintStyle().Render(d.status) + "\n")
	}
	b.WriteString(hintStyle().Render("\nSP:Pause I:Integrator +/-:Sub-steps </>:Speed T:Theme ?:Help Q:Quit"))

	view := panelStyle().Render(b.String())
	if d.showHelp {
		help := lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(CurrentTheme.Accent).
			Padding(0, 1).
			Render(strings.Join([]string{
				"Space  Pause/Resume simulation",
				"I      Cycle integrator",
				"+ / -  More/fewer sub-steps",
				"> / <  Double/halve time scale",
				"T      Cycle themes",
				"?      Toggle this help",
				"Q      Quit",
			}, "\n"))
		return lipgloss.JoinHorizontal(lipgloss.Top, view, help)
	}
	return view
}

// RunDashboard blocks until the user quits.
func RunDashboard(d *Dashboard) error {
	_, err := tea.NewProgram(d, tea.WithAltScreen()).Run()
	return err
}
