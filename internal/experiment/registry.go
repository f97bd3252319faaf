package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/orrery/internal/config"
	"github.com/san-kum/orrery/internal/gravity"
	"github.com/san-kum/orrery/internal/integrators"
	"github.com/san-kum/orrery/internal/metrics"
)

// ErrUnknownScenario indicates a scenario name with no registered preset.
var ErrUnknownScenario = errors.New("experiment: unknown scenario")

type Registry struct {
	integrators map[string]func(integrators.ForceLaw) integrators.Integrator
	scenarios   map[string]func() *config.Scenario
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func(integrators.ForceLaw) integrators.Integrator),
		scenarios:   make(map[string]func() *config.Scenario),
	}

	r.integrators["verlet"] = func(f integrators.ForceLaw) integrators.Integrator { return integrators.NewVerlet(f) }
	r.integrators["leapfrog"] = func(f integrators.ForceLaw) integrators.Integrator { return integrators.NewLeapfrog(f) }
	r.integrators["yoshida"] = func(f integrators.ForceLaw) integrators.Integrator { return integrators.NewYoshida(f) }

	for _, name := range config.ListPresets() {
		r.scenarios[name] = func() *config.Scenario { return config.GetPreset(name) }
	}

	return r
}

func (r *Registry) GetIntegrator(name string, force integrators.ForceLaw) (integrators.Integrator, error) {
	kind, err := integrators.Parse(name)
	if err != nil {
		return nil, err
	}
	fn, ok := r.integrators[kind.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integrators.ErrUnknownIntegrator, name)
	}
	return fn(force), nil
}

func (r *Registry) GetScenario(name string) (*config.Scenario, error) {
	fn, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}
	return fn(), nil
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) ListScenarios() []string {
	return sortedKeys(r.scenarios)
}

// DefaultMetrics are the run metrics for a scene whose bodies should stay
// within radius AU of their centre of mass.
func (r *Registry) DefaultMetrics(field *gravity.Field, radius float64) []metrics.Metric {
	return metrics.Standard(field, radius)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
