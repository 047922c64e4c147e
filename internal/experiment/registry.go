package experiment

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlenv/internal/config"
	"github.com/san-kum/ctrlenv/internal/controllers"
	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/env"
	"github.com/san-kum/ctrlenv/internal/metrics"
	"github.com/san-kum/ctrlenv/internal/physics"
	"github.com/san-kum/ctrlenv/internal/task"
)

type PhysicsFactory func(overrides map[string]any) (physics.Model, error)

type TaskFactory func(v task.Variant, overrides map[string]any) (task.Task, error)

type ControllerFactory func(cfg config.ControllerConfig, m physics.Model, t task.Task) (env.Policy, error)

// Registry maps configuration names to constructors.
type Registry struct {
	physics     map[string]PhysicsFactory
	tasks       map[string]TaskFactory
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		physics:     make(map[string]PhysicsFactory),
		tasks:       make(map[string]TaskFactory),
		controllers: make(map[string]ControllerFactory),
	}

	r.physics["moving_coil"] = func(o map[string]any) (physics.Model, error) { return physics.NewMovingCoil(o) }
	r.physics["moving_coil_2d"] = func(o map[string]any) (physics.Model, error) { return physics.NewMovingCoil2D(o) }
	r.physics["tank"] = func(o map[string]any) (physics.Model, error) { return physics.NewTank(o) }

	r.tasks["step"] = func(v task.Variant, o map[string]any) (task.Task, error) { return task.NewStep(v, o) }
	r.tasks["hold_target"] = func(v task.Variant, o map[string]any) (task.Task, error) { return task.NewHoldTarget(v, o) }

	r.controllers["zero"] = func(_ config.ControllerConfig, m physics.Model, _ task.Task) (env.Policy, error) {
		return controllers.NewZero(m.ControlDim()), nil
	}
	r.controllers["constant"] = func(cfg config.ControllerConfig, m physics.Model, _ task.Task) (env.Policy, error) {
		if len(cfg.Action) != m.ControlDim() {
			return nil, dynamo.Mismatch("controller action", m.ControlDim(), len(cfg.Action))
		}
		return controllers.NewConstant(cfg.Action), nil
	}
	r.controllers["pid"] = func(cfg config.ControllerConfig, m physics.Model, t task.Task) (env.Policy, error) {
		mix, err := controllers.Mixing(m)
		if err != nil {
			return nil, err
		}
		pid := controllers.NewPID(cfg.Kp, cfg.Ki, cfg.Kd, mix)
		if len(cfg.Bias) > 0 {
			if len(cfg.Bias) != m.ControlDim() {
				return nil, dynamo.Mismatch("controller bias", m.ControlDim(), len(cfg.Bias))
			}
			pid.Bias = cfg.Bias
		}
		if cfg.Clip {
			spec := t.ActionSpec(m)
			pid.Bounds = &spec
		}
		return pid, nil
	}
	r.controllers["lqr"] = func(cfg config.ControllerConfig, m physics.Model, t task.Task) (env.Policy, error) {
		k, err := gainMatrix(cfg.Gain, m.ControlDim(), m.StateDim())
		if err != nil {
			return nil, err
		}
		v, err := task.ForModel(m)
		if err != nil {
			return nil, err
		}
		lqr := controllers.NewLQR(k, v.RefDim)
		if cfg.Clip {
			spec := t.ActionSpec(m)
			lqr.Bounds = &spec
		}
		return lqr, nil
	}

	return r
}

func gainMatrix(rows [][]float64, actions, states int) (*mat.Dense, error) {
	if len(rows) != actions {
		return nil, dynamo.Mismatch("controller gain rows", actions, len(rows))
	}
	data := make([]float64, 0, actions*states)
	for _, row := range rows {
		if len(row) != states {
			return nil, dynamo.Mismatch("controller gain row", states, len(row))
		}
		data = append(data, row...)
	}
	return mat.NewDense(actions, states, data), nil
}

func (r *Registry) GetPhysics(name string, overrides map[string]any) (physics.Model, error) {
	fn, ok := r.physics[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown environment: %s", dynamo.ErrConfiguration, name)
	}
	return fn(overrides)
}

// GetTask builds the named task with the variant matching m.
func (r *Registry) GetTask(name string, m physics.Model, overrides map[string]any) (task.Task, error) {
	fn, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown task: %s", dynamo.ErrConfiguration, name)
	}
	v, err := task.ForModel(m)
	if err != nil {
		return nil, err
	}
	return fn(v, overrides)
}

func (r *Registry) GetController(cfg config.ControllerConfig, m physics.Model, t task.Task) (env.Policy, error) {
	fn, ok := r.controllers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown controller: %s", dynamo.ErrConfiguration, cfg.Type)
	}
	return fn(cfg, m, t)
}

func (r *Registry) ListPhysics() []string     { return sortedKeys(r.physics) }
func (r *Registry) ListTasks() []string       { return sortedKeys(r.tasks) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics are fresh metric instances for one run on m.
func (r *Registry) DefaultMetrics(m physics.Model) []env.Metric {
	refDim := 1
	if v, err := task.ForModel(m); err == nil {
		refDim = v.RefDim
	}
	return []env.Metric{
		metrics.NewReturn(),
		metrics.NewControlEffort(),
		metrics.NewTimeAtTarget(math.Exp(-0.5)),
		metrics.NewTrackingError(refDim),
	}
}
