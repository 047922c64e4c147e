package controllers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/physics"
)

// Mixing maps a desired effort in position space to actuator commands. The
// result has one row per action and one column per position coordinate.
//
// For the moving coil a positive effort raises I2 and lowers I1. For the
// planar coil each fixed coil i gets -c_i/|c_i| . effort, which near the
// centre attracts towards the target. The tank maps effort straight to
// inflow.
func Mixing(m physics.Model) (*mat.Dense, error) {
	switch p := m.(type) {
	case *physics.MovingCoil:
		return mat.NewDense(2, 1, []float64{-1, 1}), nil
	case *physics.MovingCoil2D:
		coils := p.Config().Coils
		mix := mat.NewDense(len(coils), 2, nil)
		for i, c := range coils {
			d := r2.Scale(-1, r2.Unit(c))
			mix.Set(i, 0, d.X)
			mix.Set(i, 1, d.Y)
		}
		return mix, nil
	case *physics.Tank:
		return mat.NewDense(1, 1, []float64{1}), nil
	}
	return nil, fmt.Errorf("%w: no actuator mixing for physics %T", dynamo.ErrConfiguration, m)
}
