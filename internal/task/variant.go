package task

import (
	"fmt"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/param"
	"github.com/san-kum/ctrlenv/internal/physics"
)

// Variant describes how tasks read and reward one physics model: the goal
// parameter prefix, the size of the reference, the reward width and the
// action bounds.
type Variant struct {
	Goal   string
	RefDim int
	Sigma  float64

	Goal1 []float64
	Goal2 []float64
	Hold  []float64

	// MinName is empty when the lower action bound is fixed at MinAction.
	MinName   string
	MinAction float64
	MinDesc   string
	MaxName   string
	MaxAction float64
	MaxDesc   string
	GoalUnit  string
}

func CoilVariant() Variant {
	return Variant{
		Goal: "x", RefDim: 1, Sigma: 0.05,
		Goal1: []float64{0}, Goal2: []float64{0.1}, Hold: []float64{0},
		MinName: "minIp", MinAction: -10, MinDesc: "[A] min Ip control coil",
		MaxName: "maxIp", MaxAction: 10, MaxDesc: "[A] max Ip control coil",
		GoalUnit: "[m] x target",
	}
}

func Coil2DVariant() Variant {
	return Variant{
		Goal: "x", RefDim: 2, Sigma: 0.1,
		Goal1: []float64{0, 0}, Goal2: []float64{0, 0.25}, Hold: []float64{0, 0},
		MinName: "minIp", MinAction: -10, MinDesc: "[A] min Ip control coil",
		MaxName: "maxIp", MaxAction: 10, MaxDesc: "[A] max Ip control coil",
		GoalUnit: "[m] x target",
	}
}

func TankVariant() Variant {
	return Variant{
		Goal: "h", RefDim: 1, Sigma: 0.1,
		Goal1: []float64{1}, Goal2: []float64{0.8}, Hold: []float64{1},
		MinAction: 0,
		MaxName:   "maxinflow", MaxAction: 5, MaxDesc: "max control inflow",
		GoalUnit: "[m] target height",
	}
}

// ForModel picks the variant matching a physics model.
func ForModel(m physics.Model) (Variant, error) {
	switch m.(type) {
	case *physics.MovingCoil:
		return CoilVariant(), nil
	case *physics.MovingCoil2D:
		return Coil2DVariant(), nil
	case *physics.Tank:
		return TankVariant(), nil
	}
	return Variant{}, fmt.Errorf("%w: no task variant for physics %T", dynamo.ErrConfiguration, m)
}

func (v Variant) boundParams() []param.Param {
	var ps []param.Param
	ps = append(ps, param.F(v.MaxName, v.MaxAction, v.MaxDesc))
	if v.MinName != "" {
		ps = append(ps, param.F(v.MinName, v.MinAction, v.MinDesc))
	}
	return ps
}

// goalParam declares a scalar goal for one-dimensional references and a
// vector goal otherwise.
func (v Variant) goalParam(name string, value []float64, desc string) param.Param {
	if v.RefDim == 1 {
		return param.F(name, value[0], desc)
	}
	return param.V(name, value, desc)
}

func (v Variant) goal(p *param.Set, name string) ([]float64, error) {
	var g []float64
	if kind, _ := p.Kind(name); kind == param.Float {
		g = []float64{p.Float(name)}
	} else {
		g = p.Vector(name)
	}
	if len(g) != v.RefDim {
		return nil, dynamo.Mismatch(name, v.RefDim, len(g))
	}
	return g, nil
}

func (v Variant) bounds(p *param.Set) (float64, float64, error) {
	lo := v.MinAction
	if v.MinName != "" {
		lo = p.Float(v.MinName)
	}
	hi := p.Float(v.MaxName)
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: action bounds [%v, %v] are inverted", dynamo.ErrConfiguration, lo, hi)
	}
	return lo, hi, nil
}
