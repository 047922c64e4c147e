package env

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/episode"
)

// Result is the trace of one episode. Times, Observations and Actions are
// aligned: Actions[i] was chosen from Observations[i] at Times[i]. The final
// observation has no action, so Observations is one longer.
type Result struct {
	Steps        int
	Return       float64
	Times        []float64
	Observations [][]float64
	Actions      []dynamo.Control
	Rewards      []float64
	Divergence   error
	Metrics      map[string]float64

	// Episode holds the task's debug recording, nil when debug is off.
	Episode episode.Packed
}

// RunEpisode resets e and steps it with policy until the episode ends. The
// context is checked between control steps; on cancellation the partial
// result is returned with ctx.Err().
func RunEpisode(ctx context.Context, e *Environment, policy Policy, metrics ...Metric) (*Result, error) {
	if math.IsInf(e.timeLimit, 1) {
		return nil, fmt.Errorf("%w: episode needs a finite time limit", dynamo.ErrConfiguration)
	}

	for _, m := range metrics {
		m.Reset()
	}
	if r, ok := policy.(Resetter); ok {
		r.Reset()
	}

	steps := int(math.Ceil(e.timeLimit / e.ControlTimestep()))
	result := &Result{
		Times:        make([]float64, 0, steps+1),
		Observations: make([][]float64, 0, steps+1),
		Actions:      make([]dynamo.Control, 0, steps),
		Rewards:      make([]float64, 0, steps),
		Metrics:      make(map[string]float64),
	}

	ts := e.Reset()
	result.Times = append(result.Times, e.physics.Time())
	result.Observations = append(result.Observations, ts.Observation)

	for !ts.Last() {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := policy.Compute(ts.Observation, e.physics.Time())
		next, err := e.Step(u)
		if err != nil {
			return result, err
		}
		ts = next

		result.Steps++
		result.Return += ts.Reward
		result.Actions = append(result.Actions, u.Clone())
		result.Rewards = append(result.Rewards, ts.Reward)
		result.Times = append(result.Times, e.physics.Time())
		result.Observations = append(result.Observations, ts.Observation)

		for _, m := range metrics {
			m.Observe(ts, u, e.physics.Time())
		}
	}

	result.Divergence = e.Divergence()
	for _, m := range metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if rec := e.task.Recorder(); rec != nil && rec.Len() > 0 {
		packed, err := rec.Pack()
		if err != nil {
			return result, err
		}
		result.Episode = packed
	}
	return result, nil
}

// Run bundles what one episode of a batch needs. Nothing in it may be shared
// with another run.
type Run struct {
	Env     *Environment
	Policy  Policy
	Metrics []Metric
}

// Factory builds run i of a batch.
type Factory func(i int) (Run, error)

// RunBatch runs n independent episodes with at most workers of them in
// flight (no limit when workers < 1). Results are indexed by run. The first
// error cancels the remaining runs.
func RunBatch(ctx context.Context, n, workers int, factory Factory) ([]*Result, error) {
	results := make([]*Result, n)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			run, err := factory(i)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			res, err := RunEpisode(ctx, run.Env, run.Policy, run.Metrics...)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
