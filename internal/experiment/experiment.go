package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/ctrlenv/internal/config"
	"github.com/san-kum/ctrlenv/internal/env"
)

// Experiment runs the episodes a config describes. Every episode gets its
// own physics, task and policy.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Experiment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   logger,
	}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Build assembles episode i.
func (e *Experiment) Build(i int) (env.Run, error) {
	m, err := e.registry.GetPhysics(e.cfg.Environment, e.cfg.Physics)
	if err != nil {
		return env.Run{}, err
	}
	t, err := e.registry.GetTask(e.cfg.Task, m, e.cfg.TaskParams)
	if err != nil {
		return env.Run{}, err
	}
	policy, err := e.registry.GetController(e.cfg.Controller, m, t)
	if err != nil {
		return env.Run{}, err
	}

	opts := []env.Option{
		env.WithTimeLimit(e.cfg.TimeLimit),
		env.WithDiscount(e.cfg.Discount),
		env.WithLogger(e.logger.With(zap.Int("run", i))),
	}
	if e.cfg.DtCtr > 0 {
		opts = append(opts, env.WithControlTimestep(e.cfg.DtCtr))
	}
	environment, err := env.New(m, t, opts...)
	if err != nil {
		return env.Run{}, err
	}
	return env.Run{
		Env:     environment,
		Policy:  policy,
		Metrics: e.registry.DefaultMetrics(m),
	}, nil
}

// Run validates the config and runs all episodes. The first run is built
// up front so configuration errors surface before any goroutine starts.
func (e *Experiment) Run(ctx context.Context) ([]*env.Result, []env.Run, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if _, err := e.Build(0); err != nil {
		return nil, nil, fmt.Errorf("build: %w", err)
	}

	runs := make([]env.Run, e.cfg.Episodes)
	results, err := env.RunBatch(ctx, e.cfg.Episodes, e.cfg.Workers, func(i int) (env.Run, error) {
		run, err := e.Build(i)
		if err != nil {
			return env.Run{}, err
		}
		runs[i] = run
		return run, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return results, runs, nil
}
