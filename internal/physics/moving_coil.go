package physics

import (
	"fmt"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/param"
)

// MovingCoilConfig is the typed form of the moving coil parameters.
type MovingCoilConfig struct {
	X1        float64
	X2        float64
	Ip        float64
	Mass      float64
	Dt        float64
	InitState dynamo.State
}

// MovingCoil models a coil carrying current Ip that moves on a line between
// two fixed coils at x1 < x2. The fixed coil currents are the actions. The
// attraction from coil i is Ip*I_i/(x_i - x), and m*x'' is their sum.
//
// State is [x, dx/dt]. The coil sticks to a fixed coil it reaches, with its
// velocity zeroed, and reaching either one is a divergence.
type MovingCoil struct {
	base
	cfg MovingCoilConfig
}

func MovingCoilDefaults() *param.Set {
	return param.New(
		param.S("phys_name", "MovingCoil", "Name of physics module"),
		param.F("x1", -1, "x[m] location fixed coil 1"),
		param.F("x2", 1, "x[m] location fixed coil 2"),
		param.F("Ip", 1, "Ip[A] moving coil"),
		param.F("m", 1, "m[Kg] moving coil"),
		param.F("dt_sim", 1e-1, "[s] Discretization time interval for sim"),
		param.V("init_state", []float64{0, 0}, "Initial state [x, dxdt]"),
	)
}

func NewMovingCoil(overrides map[string]any) (*MovingCoil, error) {
	b, err := newBase(MovingCoilDefaults(), overrides)
	if err != nil {
		return nil, fmt.Errorf("moving coil: %w", err)
	}
	c := &MovingCoil{base: b}
	if err := c.apply(c.params); err != nil {
		return nil, fmt.Errorf("moving coil: %w", err)
	}
	return c, nil
}

func (c *MovingCoil) apply(p *param.Set) error {
	cfg := MovingCoilConfig{
		X1:        p.Float("x1"),
		X2:        p.Float("x2"),
		Ip:        p.Float("Ip"),
		Mass:      p.Float("m"),
		Dt:        p.Float("dt_sim"),
		InitState: p.Vector("init_state"),
	}
	if len(cfg.InitState) != 2 {
		return dynamo.Mismatch("init_state", 2, len(cfg.InitState))
	}
	if !(cfg.X1 < cfg.X2) {
		return fmt.Errorf("%w: x1 (%v) must be below x2 (%v)", dynamo.ErrConfiguration, cfg.X1, cfg.X2)
	}
	if err := positive("m", cfg.Mass); err != nil {
		return err
	}
	if err := validTimestep(cfg.Dt); err != nil {
		return err
	}

	c.params = p
	c.cfg = cfg
	c.dt = cfg.Dt
	c.initState = cfg.InitState
	c.initCtrl = make(dynamo.Control, 2)
	c.Reset()
	return nil
}

func (c *MovingCoil) Config() MovingCoilConfig {
	cfg := c.cfg
	cfg.InitState = cfg.InitState.Clone()
	return cfg
}

func (c *MovingCoil) StateDim() int   { return 2 }
func (c *MovingCoil) ControlDim() int { return 2 }

// attraction is the force from a fixed coil at xi with current i. It is
// defined as 0 when the coils coincide.
func (c *MovingCoil) attraction(xi, i, x float64) float64 {
	d := xi - x
	if d == 0 {
		return 0
	}
	return c.cfg.Ip * i / d
}

func (c *MovingCoil) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	f := c.attraction(c.cfg.X1, u[0], x[0]) + c.attraction(c.cfg.X2, u[1], x[0])
	return dynamo.State{x[1], f / c.cfg.Mass}
}

func (c *MovingCoil) Step() {
	c.advance(c)

	switch {
	case c.state[0] <= c.cfg.X1:
		c.state[0] = c.cfg.X1
		c.state[1] = 0
	case c.state[0] >= c.cfg.X2:
		c.state[0] = c.cfg.X2
		c.state[1] = 0
	}
}

func (c *MovingCoil) CheckDivergence() error {
	if c.state[0] <= c.cfg.X1 {
		return dynamo.Diverged("moving coil reached fixed coil 1", c.time, c.state)
	}
	if c.state[0] >= c.cfg.X2 {
		return dynamo.Diverged("moving coil reached fixed coil 2", c.time, c.state)
	}
	return c.notFinite()
}

func (c *MovingCoil) Position() dynamo.State {
	return dynamo.State{c.state[0]}
}

func (c *MovingCoil) ReadConfig(path string) error {
	return c.readConfig(path, c.apply)
}
