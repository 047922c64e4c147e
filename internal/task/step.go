package task

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/param"
	"github.com/san-kum/ctrlenv/internal/physics"
)

// Step holds goal1 until t_step and goal2 afterwards. With the default
// t_step of +Inf it never switches.
type Step struct {
	tracking
	goal1 []float64
	goal2 []float64
	tStep float64
}

func StepDefaults(v Variant) *param.Set {
	ps := []param.Param{param.S("task_name", "Step", "Name of task")}
	ps = append(ps, v.boundParams()...)
	ps = append(ps,
		v.goalParam(v.Goal+"_goal1", v.Goal1, v.GoalUnit+" 1st time interval"),
		v.goalParam(v.Goal+"_goal2", v.Goal2, v.GoalUnit+" 2nd time interval"),
		param.F("t_step", math.Inf(1), "[s] switching instant 1st->2nd target"),
		param.B("debug", false, "if True store episode data"),
	)
	return param.New(ps...)
}

func NewStep(v Variant, overrides map[string]any) (*Step, error) {
	p := StepDefaults(v)
	if err := p.Override(overrides); err != nil {
		return nil, fmt.Errorf("step task: %w", err)
	}
	s := &Step{tracking: tracking{variant: v}}
	s.reference = s.ref
	if err := s.apply(p); err != nil {
		return nil, fmt.Errorf("step task: %w", err)
	}
	return s, nil
}

func (s *Step) apply(p *param.Set) error {
	g1, err := s.variant.goal(p, s.variant.Goal+"_goal1")
	if err != nil {
		return err
	}
	g2, err := s.variant.goal(p, s.variant.Goal+"_goal2")
	if err != nil {
		return err
	}
	if err := s.setCommon(p); err != nil {
		return err
	}
	s.goal1, s.goal2 = g1, g2
	s.tStep = p.Float("t_step")
	return nil
}

func (s *Step) ref(m physics.Model) []float64 {
	g := s.goal2
	if m.Time() < s.tStep {
		g = s.goal1
	}
	return append([]float64(nil), g...)
}

func (s *Step) Reward(m physics.Model) float64 {
	return s.gaussian(m)
}

func (s *Step) BeforeStep(u dynamo.Control, m physics.Model) error {
	return s.forward(u, m, s.Reward)
}

func (s *Step) ReadConfig(path string) error {
	return s.readConfig(path, s.apply)
}
