package env

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/physics"
	"github.com/san-kum/ctrlenv/internal/task"
)

// Environment drives one physics model with one task. Each control step
// forwards the action, integrates n_sub_steps physics steps of dt_sim and
// then scores the result.
type Environment struct {
	physics physics.Model
	task    task.Task
	logger  *zap.Logger

	timeLimit float64
	dtCtr     float64
	discount  float64
	nSub      int

	steps     int
	episodes  int
	resetNext bool
	lastErr   error
}

type Option func(*Environment)

// WithTimeLimit ends episodes once the physics time reaches limit seconds.
// The default is no limit.
func WithTimeLimit(limit float64) Option {
	return func(e *Environment) { e.timeLimit = limit }
}

// WithControlTimestep sets dt_ctr, the time between control decisions. It
// must be an integer multiple of the model's dt_sim. Defaults to dt_sim.
func WithControlTimestep(dt float64) Option {
	return func(e *Environment) { e.dtCtr = dt }
}

func WithDiscount(d float64) Option {
	return func(e *Environment) { e.discount = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

func New(m physics.Model, t task.Task, opts ...Option) (*Environment, error) {
	e := &Environment{
		physics:   m,
		task:      t,
		logger:    zap.NewNop(),
		timeLimit: math.Inf(1),
		dtCtr:     m.Timestep(),
		discount:  1,
		resetNext: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := fits(m, t); err != nil {
		return nil, err
	}
	n, err := subSteps(e.dtCtr, m.Timestep())
	if err != nil {
		return nil, err
	}
	e.nSub = n
	if !(e.timeLimit > 0) {
		return nil, fmt.Errorf("%w: time limit must be positive, got %v", dynamo.ErrConfiguration, e.timeLimit)
	}
	if e.discount < 0 || e.discount > 1 {
		return nil, fmt.Errorf("%w: discount must be in [0, 1], got %v", dynamo.ErrConfiguration, e.discount)
	}
	return e, nil
}

// fits checks that the task was built for a model of m's shape: one
// reference entry per position coordinate and one action per actuator.
func fits(m physics.Model, t task.Task) error {
	if ref, pos := len(t.Reference(m)), len(m.Position()); ref != pos {
		return dynamo.Mismatch("task reference", pos, ref)
	}
	if spec := t.ActionSpec(m); spec.Size() != m.ControlDim() {
		return dynamo.Mismatch("task action spec", m.ControlDim(), spec.Size())
	}
	return nil
}

// subSteps is dt_ctr/dt_sim, which must be a positive integer up to
// floating point noise.
func subSteps(dtCtr, dtSim float64) (int, error) {
	if !(dtCtr > 0) || math.IsInf(dtCtr, 0) {
		return 0, fmt.Errorf("%w: control timestep must be positive and finite, got %v", dynamo.ErrConfiguration, dtCtr)
	}
	ratio := dtCtr / dtSim
	n := math.Round(ratio)
	if n < 1 || math.Abs(ratio-n) > 1e-9*n {
		return 0, fmt.Errorf("%w: control timestep %v is not a multiple of physics timestep %v",
			dynamo.ErrConfiguration, dtCtr, dtSim)
	}
	return int(n), nil
}

func (e *Environment) Physics() physics.Model { return e.physics }
func (e *Environment) Task() task.Task        { return e.task }
func (e *Environment) SubSteps() int          { return e.nSub }
func (e *Environment) ControlTimestep() float64 {
	return float64(e.nSub) * e.physics.Timestep()
}
func (e *Environment) TimeLimit() float64 { return e.timeLimit }

// Divergence is the error that ended the last episode, or nil when it ended
// on the time limit or is still running.
func (e *Environment) Divergence() error { return e.lastErr }

func (e *Environment) ObservationSpec() task.Spec {
	return e.task.ObservationSpec(e.physics)
}

func (e *Environment) ActionSpec() task.BoundedSpec {
	return e.task.ActionSpec(e.physics)
}

// Reset starts a new episode.
func (e *Environment) Reset() TimeStep {
	e.task.InitializeEpisode(e.physics)
	e.steps = 0
	e.episodes++
	e.resetNext = false
	e.lastErr = nil

	e.logger.Info("episode started",
		zap.Int("episode", e.episodes),
		zap.String("physics", e.physics.Name()),
		zap.String("task", e.task.Name()),
	)
	return TimeStep{Type: First, Discount: 1, Observation: e.task.Observation(e.physics)}
}

// Step applies u for one control timestep. After a Last step the next call
// resets instead. An action of the wrong length leaves the episode as it was.
func (e *Environment) Step(u dynamo.Control) (TimeStep, error) {
	if e.resetNext {
		return e.Reset(), nil
	}
	if err := e.task.BeforeStep(u, e.physics); err != nil {
		return TimeStep{}, fmt.Errorf("step %d: %w", e.steps, err)
	}
	for i := 0; i < e.nSub; i++ {
		e.physics.Step()
	}
	e.steps++

	ts := TimeStep{
		Type:        Mid,
		Reward:      e.task.Reward(e.physics),
		Discount:    e.discount,
		Observation: e.task.Observation(e.physics),
	}

	if err := e.physics.CheckDivergence(); err != nil {
		e.lastErr = err
		ts.Type = Last
		ts.Discount = 0

		var div *dynamo.Divergence
		if errors.As(err, &div) {
			e.logger.Debug("physics diverged",
				zap.String("cause", div.Cause),
				zap.Float64("time", div.Time),
				zap.Int("steps", e.steps),
			)
		}
	} else if e.physics.Time() >= e.timeLimit-1e-9*e.physics.Timestep() {
		ts.Type = Last
	}

	if ts.Last() {
		e.resetNext = true
		e.logger.Info("episode finished",
			zap.Int("episode", e.episodes),
			zap.Int("steps", e.steps),
			zap.Float64("time", e.physics.Time()),
			zap.Bool("diverged", e.lastErr != nil),
		)
	}
	return ts, nil
}
