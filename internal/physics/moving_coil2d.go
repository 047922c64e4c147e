package physics

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/param"
)

// MovingCoil2DConfig is the typed form of the planar moving coil parameters.
type MovingCoil2DConfig struct {
	Coils         []r2.Vec
	InitCurrents  dynamo.Control
	Boundary      float64
	Ip            float64
	Mass          float64
	Dt            float64
	InitState     dynamo.State
	ClampBoundary bool
}

// MovingCoil2D models a coil moving in the plane inside a disc of radius
// r_b, driven by N fixed coils placed outside the disc. For r = p - c_i the
// acceleration is Ip/m * sum_i I_i * r/|r|^2.
//
// State is [x, y, dx/dt, dy/dt]; one action per fixed coil. Leaving the disc
// is only detected by CheckDivergence unless clamp_boundary is set.
type MovingCoil2D struct {
	base
	cfg MovingCoil2DConfig

	// clamped is set when Step projected the coil onto the boundary, whose
	// norm may round to just below r_b.
	clamped bool
}

func MovingCoil2DDefaults() *param.Set {
	return param.New(
		param.S("phys_name", "MovingCoil2D", "Name of physics module"),
		param.V("x_c", []float64{1, 1, -1, 1, -1, -1, 1, -1}, "x[m] location of fixed coils as flattened [x, y] pairs"),
		param.V("I_c_init", []float64{0, 0, 0, 0}, "I[A] initial current of fixed coils"),
		param.F("r_b", 1, "r[m] radius for boundary"),
		param.F("Ip", 1, "Ip[A] moving coil"),
		param.F("m", 1, "m[Kg] moving coil"),
		param.F("dt_sim", 1e-1, "[s] Discretization time interval for sim"),
		param.V("init_state", []float64{0, 0, 0, 0}, "Initial state [x, y, dxdt, dydt]"),
		param.B("clamp_boundary", false, "if true stop the moving coil on the boundary circle"),
	)
}

func NewMovingCoil2D(overrides map[string]any) (*MovingCoil2D, error) {
	b, err := newBase(MovingCoil2DDefaults(), overrides)
	if err != nil {
		return nil, fmt.Errorf("moving coil 2d: %w", err)
	}
	c := &MovingCoil2D{base: b}
	if err := c.apply(c.params); err != nil {
		return nil, fmt.Errorf("moving coil 2d: %w", err)
	}
	return c, nil
}

func (c *MovingCoil2D) apply(p *param.Set) error {
	flat := p.Vector("x_c")
	if len(flat)%2 != 0 {
		return fmt.Errorf("%w: x_c holds %d values, expected [x, y] pairs", dynamo.ErrDimensionMismatch, len(flat))
	}
	coils := make([]r2.Vec, len(flat)/2)
	for i := range coils {
		coils[i] = r2.Vec{X: flat[2*i], Y: flat[2*i+1]}
	}

	cfg := MovingCoil2DConfig{
		Coils:         coils,
		InitCurrents:  dynamo.Control(p.Vector("I_c_init")),
		Boundary:      p.Float("r_b"),
		Ip:            p.Float("Ip"),
		Mass:          p.Float("m"),
		Dt:            p.Float("dt_sim"),
		InitState:     dynamo.State(p.Vector("init_state")),
		ClampBoundary: p.Bool("clamp_boundary"),
	}
	if len(cfg.InitCurrents) != len(coils) {
		return dynamo.Mismatch("I_c_init", len(coils), len(cfg.InitCurrents))
	}
	if len(cfg.InitState) != 4 {
		return dynamo.Mismatch("init_state", 4, len(cfg.InitState))
	}
	if len(coils) == 0 {
		return fmt.Errorf("%w: at least one fixed coil is required", dynamo.ErrConfiguration)
	}
	if err := positive("r_b", cfg.Boundary); err != nil {
		return err
	}
	for i, coil := range coils {
		if r2.Norm(coil) < cfg.Boundary {
			return fmt.Errorf("%w: fixed coil %d at (%v, %v) lies within the moving coil domain",
				dynamo.ErrConfiguration, i, coil.X, coil.Y)
		}
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
	c.initCtrl = cfg.InitCurrents
	c.Reset()
	return nil
}

func (c *MovingCoil2D) Config() MovingCoil2DConfig {
	cfg := c.cfg
	cfg.Coils = append([]r2.Vec(nil), c.cfg.Coils...)
	cfg.InitCurrents = cfg.InitCurrents.Clone()
	cfg.InitState = cfg.InitState.Clone()
	return cfg
}

func (c *MovingCoil2D) Reset() {
	c.base.Reset()
	c.clamped = false
}

func (c *MovingCoil2D) StateDim() int   { return 4 }
func (c *MovingCoil2D) ControlDim() int { return len(c.cfg.Coils) }

func (c *MovingCoil2D) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	p := r2.Vec{X: x[0], Y: x[1]}
	var a r2.Vec
	for i, coil := range c.cfg.Coils {
		r := r2.Sub(p, coil)
		d2 := r2.Norm2(r)
		if d2 == 0 {
			continue
		}
		a = r2.Add(a, r2.Scale(u[i]/d2, r))
	}
	a = r2.Scale(c.cfg.Ip/c.cfg.Mass, a)
	return dynamo.State{x[2], x[3], a.X, a.Y}
}

func (c *MovingCoil2D) Step() {
	c.advance(c)

	if !c.cfg.ClampBoundary {
		return
	}
	p := r2.Vec{X: c.state[0], Y: c.state[1]}
	if r2.Norm(p) >= c.cfg.Boundary {
		p = r2.Scale(c.cfg.Boundary, r2.Unit(p))
		c.state[0], c.state[1] = p.X, p.Y
		c.state[2], c.state[3] = 0, 0
		c.clamped = true
	}
}

func (c *MovingCoil2D) CheckDivergence() error {
	if c.clamped || c.Position().Norm() >= c.cfg.Boundary {
		return dynamo.Diverged("moving coil out of boundaries", c.time, c.state)
	}
	return c.notFinite()
}

func (c *MovingCoil2D) Position() dynamo.State {
	return dynamo.State{c.state[0], c.state[1]}
}

func (c *MovingCoil2D) ReadConfig(path string) error {
	return c.readConfig(path, c.apply)
}
