package controllers

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/task"
)

// LQR is full-state feedback u = -K (x - x*), where x* is the reference
// padded with zeros (target position at rest). K has one row per action and
// one column per state entry.
type LQR struct {
	K      *mat.Dense
	Bounds *task.BoundedSpec

	refDim int
}

func NewLQR(k *mat.Dense, refDim int) *LQR {
	return &LQR{K: k, refDim: refDim}
}

func (l *LQR) Compute(obs []float64, t float64) dynamo.Control {
	rows, cols := l.K.Dims()
	ref, state := obs[:l.refDim], obs[l.refDim:]

	x := make(dynamo.State, cols)
	copy(x, state)
	dx := mat.NewVecDense(cols, x.Sub(dynamo.State(ref)))

	var u mat.VecDense
	u.MulVec(l.K, dx)
	out := make(dynamo.Control, rows)
	for i := range out {
		out[i] = -u.AtVec(i)
	}
	if l.Bounds != nil {
		out = l.Bounds.Clip(out)
	}
	return out
}
