package experiment

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/orrery/internal/config"
)

// Compare runs the scenario once per integrator, concurrently, each on its
// own copy of the scene. Results are in the order of names. Observers in
// opts are called from several goroutines.
func Compare(ctx context.Context, sc *config.Scenario, names []string, opts ...Option) ([]*Result, error) {
	exps := make([]*Experiment, len(names))
	for i, name := range names {
		run := sc.Clone()
		run.Integrator = name
		exp, err := New(run, opts...)
		if err != nil {
			return nil, err
		}
		exps[i] = exp
	}

	results := make([]*Result, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, exp := range exps {
		g.Go(func() error {
			res, err := exp.Run(ctx)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
