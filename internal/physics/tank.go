package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/param"
)

type TankConfig struct {
	Alpha        float64
	Dt           float64
	HMax         float64
	InitState    dynamo.State
	ClampMax     bool
	DivergeAtMax bool
}

// Tank models the water height h of a tank with inflow u and outflow
// alpha*sqrt(h): dh/dt = -alpha*sqrt(h) + u.
//
// The height never drops below 0. At hmax it is clamped when clamp_max is
// set, and reported as a divergence when diverge_at_max is set.
type Tank struct {
	base
	cfg TankConfig
}

func TankDefaults() *param.Set {
	return param.New(
		param.S("phys_name", "tank", "Name of physics module"),
		param.F("alpha", 1, "outflow coefficient"),
		param.F("dt_sim", 0.5e-1, "[s] Discretization time interval for sim"),
		param.F("hmax", 5, "[m] max water height in tank"),
		param.V("init_state", []float64{1}, "[m] initial water height"),
		param.B("clamp_max", true, "if true clamp h at hmax"),
		param.B("diverge_at_max", true, "if true reaching hmax ends the episode"),
	)
}

func NewTank(overrides map[string]any) (*Tank, error) {
	b, err := newBase(TankDefaults(), overrides)
	if err != nil {
		return nil, fmt.Errorf("tank: %w", err)
	}
	tk := &Tank{base: b}
	if err := tk.apply(tk.params); err != nil {
		return nil, fmt.Errorf("tank: %w", err)
	}
	return tk, nil
}

func (tk *Tank) apply(p *param.Set) error {
	cfg := TankConfig{
		Alpha:        p.Float("alpha"),
		Dt:           p.Float("dt_sim"),
		HMax:         p.Float("hmax"),
		InitState:    dynamo.State(p.Vector("init_state")),
		ClampMax:     p.Bool("clamp_max"),
		DivergeAtMax: p.Bool("diverge_at_max"),
	}
	if len(cfg.InitState) != 1 {
		return dynamo.Mismatch("init_state", 1, len(cfg.InitState))
	}
	if cfg.InitState[0] < 0 {
		return fmt.Errorf("%w: initial height must be non-negative, got %v", dynamo.ErrConfiguration, cfg.InitState[0])
	}
	if cfg.Alpha < 0 || math.IsNaN(cfg.Alpha) {
		return fmt.Errorf("%w: alpha must be non-negative, got %v", dynamo.ErrConfiguration, cfg.Alpha)
	}
	if err := positive("hmax", cfg.HMax); err != nil {
		return err
	}
	if err := validTimestep(cfg.Dt); err != nil {
		return err
	}

	tk.params = p
	tk.cfg = cfg
	tk.dt = cfg.Dt
	tk.initState = cfg.InitState
	tk.initCtrl = make(dynamo.Control, 1)
	tk.Reset()
	return nil
}

func (tk *Tank) Config() TankConfig {
	cfg := tk.cfg
	cfg.InitState = cfg.InitState.Clone()
	return cfg
}

func (tk *Tank) StateDim() int   { return 1 }
func (tk *Tank) ControlDim() int { return 1 }

func (tk *Tank) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{-tk.cfg.Alpha*math.Sqrt(x[0]) + u[0]}
}

func (tk *Tank) Step() {
	tk.advance(tk)

	if tk.state[0] <= 0 {
		tk.state[0] = 0
	}
	if tk.cfg.ClampMax && tk.state[0] >= tk.cfg.HMax {
		tk.state[0] = tk.cfg.HMax
	}
}

func (tk *Tank) CheckDivergence() error {
	if tk.cfg.DivergeAtMax && tk.state[0] >= tk.cfg.HMax {
		return dynamo.Diverged(fmt.Sprintf("h > max value = %g [m]", tk.cfg.HMax), tk.time, tk.state)
	}
	return tk.notFinite()
}

func (tk *Tank) Position() dynamo.State {
	return dynamo.State{tk.state[0]}
}

func (tk *Tank) ReadConfig(path string) error {
	return tk.readConfig(path, tk.apply)
}
