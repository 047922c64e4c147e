package task

import (
	"fmt"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/param"
	"github.com/san-kum/ctrlenv/internal/physics"
)

// HoldTarget keeps one constant reference. While the model reports a
// divergence the reward is the fixed terminal_reward instead of the
// Gaussian.
type HoldTarget struct {
	tracking
	goal     []float64
	terminal float64
}

func HoldTargetDefaults(v Variant) *param.Set {
	ps := []param.Param{param.S("task_name", "HoldTarget", "Name of task")}
	ps = append(ps, v.boundParams()...)
	ps = append(ps,
		v.goalParam(v.Goal+"_goal", v.Hold, v.GoalUnit),
		param.F("terminal_reward", 0, "reward returned while the physics is diverged"),
		param.B("debug", false, "if True store episode data"),
	)
	return param.New(ps...)
}

func NewHoldTarget(v Variant, overrides map[string]any) (*HoldTarget, error) {
	p := HoldTargetDefaults(v)
	if err := p.Override(overrides); err != nil {
		return nil, fmt.Errorf("hold target task: %w", err)
	}
	h := &HoldTarget{tracking: tracking{variant: v}}
	h.reference = h.ref
	if err := h.apply(p); err != nil {
		return nil, fmt.Errorf("hold target task: %w", err)
	}
	return h, nil
}

func (h *HoldTarget) apply(p *param.Set) error {
	g, err := h.variant.goal(p, h.variant.Goal+"_goal")
	if err != nil {
		return err
	}
	if err := h.setCommon(p); err != nil {
		return err
	}
	h.goal = g
	h.terminal = p.Float("terminal_reward")
	return nil
}

func (h *HoldTarget) ref(physics.Model) []float64 {
	return append([]float64(nil), h.goal...)
}

func (h *HoldTarget) Reward(m physics.Model) float64 {
	if m.CheckDivergence() != nil {
		return h.terminal
	}
	return h.gaussian(m)
}

func (h *HoldTarget) BeforeStep(u dynamo.Control, m physics.Model) error {
	return h.forward(u, m, h.Reward)
}

func (h *HoldTarget) ReadConfig(path string) error {
	return h.readConfig(path, h.apply)
}
