package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/integrators"
	"github.com/san-kum/ctrlenv/internal/param"
)

// Model is one simulated dynamical system driven by an external control
// loop. Step never fails; callers check CheckDivergence after stepping.
type Model interface {
	dynamo.System

	Name() string
	Reset()
	SetControl(u dynamo.Control) error
	Step()
	CheckDivergence() error

	State() dynamo.State
	Position() dynamo.State
	Control() dynamo.Control
	Time() float64
	Timestep() float64

	Params() *param.Set
	WriteConfig(path string) error
	ReadConfig(path string) error
}

// base holds the state shared by every variant. Variants embed it and
// supply Derive plus their own clamping and divergence rules.
type base struct {
	params *param.Set
	integ  dynamo.Integrator

	initState dynamo.State
	initCtrl  dynamo.Control
	dt        float64

	state  dynamo.State
	action dynamo.Control
	time   float64
}

func newBase(defaults *param.Set, overrides map[string]any) (base, error) {
	if err := defaults.Override(overrides); err != nil {
		return base{}, err
	}
	return base{params: defaults, integ: integrators.NewEuler()}, nil
}

func (b *base) Name() string { return b.params.Text("phys_name") }

func (b *base) Reset() {
	b.state = b.initState.Clone()
	b.action = b.initCtrl.Clone()
	b.time = 0
}

func (b *base) SetControl(u dynamo.Control) error {
	if len(u) != len(b.initCtrl) {
		return dynamo.Mismatch("action", len(b.initCtrl), len(u))
	}
	b.action = u.Clone()
	return nil
}

func (b *base) advance(sys dynamo.System) {
	b.state = b.integ.Step(sys, b.state, b.action, b.time, b.dt)
	b.time += b.dt
}

func (b *base) State() dynamo.State     { return b.state.Clone() }
func (b *base) Control() dynamo.Control { return b.action.Clone() }
func (b *base) Time() float64           { return b.time }
func (b *base) Timestep() float64       { return b.dt }
func (b *base) Params() *param.Set      { return b.params.Clone() }

func (b *base) WriteConfig(path string) error {
	return b.params.WriteFile(path)
}

// readConfig loads path on top of a copy of the current parameters and hands
// the result to apply. The model is left unchanged when either step fails.
func (b *base) readConfig(path string, apply func(*param.Set) error) error {
	next := b.params.Clone()
	if err := next.ReadFile(path); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return apply(next)
}

func (b *base) notFinite() error {
	if !b.state.IsValid() {
		return dynamo.Diverged("system state not finite", b.time, b.state)
	}
	return nil
}

func validTimestep(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: dt_sim must be positive and finite, got %v", dynamo.ErrConfiguration, dt)
	}
	return nil
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be positive and finite, got %v", dynamo.ErrConfiguration, name, v)
	}
	return nil
}
