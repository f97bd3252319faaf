package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/experiment"
	"github.com/san-kum/orrery/internal/frame"
	"github.com/san-kum/orrery/internal/gravity"
	"github.com/san-kum/orrery/internal/storage"
)

const dateLayout = "2006-01-02 15:04"

func row(label, value string) string {
	return labelStyle().Render(label) + valueStyle().Render(value) + "\n"
}

// Summary renders the outcome of a single run.
func Summary(res *experiment.Result) string {
	var s strings.Builder
	s.WriteString(titleStyle().Render(strings.ToUpper(res.Scenario)) + "\n\n")
	s.WriteString(row("integrator", res.Integrator))
	s.WriteString(row("frames", fmt.Sprintf("%d", res.Frames)))
	s.WriteString(row("elapsed", fmt.Sprintf("%.2f days", res.Elapsed)))
	s.WriteString(row("epoch", frame.Date(res.Elapsed).Format(dateLayout)))
	s.WriteString(row("samples", fmt.Sprintf("%d", len(res.Times))))
	s.WriteString(row("singular", fmt.Sprintf("%d", res.Singularities)))

	if len(res.Metrics) > 0 {
		s.WriteString("\n" + headerStyle().Render("METRICS") + "\n")
		names := make([]string, 0, len(res.Metrics))
		for name := range res.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := res.Metrics[name]
			value := fmt.Sprintf("%.3e", v)
			if strings.HasSuffix(name, "_drift") {
				value = driftStyle(v).Render(value)
			}
			s.WriteString(labelStyle().Width(24).Render(name) + value + "\n")
		}
	}

	if len(res.EnergyDrift) > 1 {
		s.WriteString("\n" + labelStyle().Render("drift") + SparklineChart(res.EnergyDrift, 40) + "\n")
	}
	return panelStyle().Render(s.String())
}

// CompareTable lines up runs of the same scenario, one per integrator.
func CompareTable(results []*experiment.Result) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(CurrentTheme.Muted)).
		Headers("INTEGRATOR", "ENERGY DRIFT", "MOMENTUM DRIFT", "ANG. MOMENTUM DRIFT", "TIME")

	for _, res := range results {
		timing := "-"
		if res.WallTime > 0 {
			timing = fmt.Sprintf("%.2f ms", float64(res.WallTime.Microseconds())/1000)
		}
		t.Row(
			res.Integrator,
			fmt.Sprintf("%.3e", res.Metrics["energy_drift"]),
			fmt.Sprintf("%.3e", res.Metrics["momentum_drift"]),
			fmt.Sprintf("%.3e", res.Metrics["angular_momentum_drift"]),
			timing,
		)
	}
	return t.String()
}

func RunsTable(runs []storage.RunMetadata) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(CurrentTheme.Muted)).
		Headers("ID", "SCENARIO", "TIME", "INTEG", "SUB", "FRAME DT", "ELAPSED", "ENERGY DRIFT")

	for _, run := range runs {
		t.Row(
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Integrator,
			fmt.Sprintf("%d", run.SubIterations),
			fmt.Sprintf("%.4gd", run.FrameDt),
			fmt.Sprintf("%.2fd", run.Elapsed),
			fmt.Sprintf("%.3e", run.Metrics["energy_drift"]),
		)
	}
	return t.String()
}

// BodyTable lists each body's distance from the centre of mass, speed and
// spin angle.
func BodyTable(bodies []*body.Body) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("BODY", "KIND", "R (AU)", "V (AU/d)", "SPIN")

	com := gravity.CenterOfMass(bodies)
	for _, b := range bodies {
		spin := "-"
		if b.Rotation != nil {
			spin = fmt.Sprintf("%5.1f°", b.Spin()*180/math.Pi)
		}
		t.Row(
			b.Name,
			b.Kind.String(),
			fmt.Sprintf("%.6f", r3.Norm(r3.Sub(b.Position, com))),
			fmt.Sprintf("%.6f", r3.Norm(b.Velocity)),
			spin,
		)
	}
	return t.String()
}

// SeriesPlot draws values as an ASCII line graph. It returns the empty string
// when there is nothing to draw.
func SeriesPlot(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// Plots renders the standard diagnostic series of a run.
func Plots(res *experiment.Result) string {
	var s strings.Builder
	series := []struct {
		caption string
		values  []float64
	}{
		{"energy", res.Energy},
		{"relative energy drift", res.EnergyDrift},
		{"|momentum|", res.Momentum},
		{"|angular momentum|", res.AngularMomentum},
	}
	for _, sr := range series {
		if plot := SeriesPlot(sr.values, sr.caption, 80, 10); plot != "" {
			s.WriteString(plot + "\n\n")
		}
	}
	return s.String()
}
