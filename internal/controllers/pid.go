package controllers

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/task"
)

// PID tracks the reference in a task observation. Observations are laid out
// as [reference, state] with the position in the first RefDim state entries,
// so the error is obs[:n] - obs[n:2n]. Each coordinate gets its own PID term
// and Mix turns the efforts into actions.
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	// Bias is added to the mixed output, e.g. the inflow that balances the
	// tank outflow at the target.
	Bias   dynamo.Control
	Bounds *task.BoundedSpec

	refDim   int
	mix      *mat.Dense
	integral []float64
	prevErr  []float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd float64, mix *mat.Dense) *PID {
	_, n := mix.Dims()
	return &PID{
		Kp:       kp,
		Ki:       ki,
		Kd:       kd,
		refDim:   n,
		mix:      mix,
		integral: make([]float64, n),
		prevErr:  make([]float64, n),
		first:    true,
	}
}

func (p *PID) Reset() {
	for i := range p.integral {
		p.integral[i] = 0
		p.prevErr[i] = 0
	}
	p.prevT = 0
	p.first = true
}

func (p *PID) Compute(obs []float64, t float64) dynamo.Control {
	n := p.refDim
	effort := make([]float64, n)

	dt := t - p.prevT
	for i := 0; i < n; i++ {
		err := obs[i] - obs[n+i]
		switch {
		case p.first:
			effort[i] = p.Kp * err
		case dt > 0:
			p.integral[i] += err * dt
			derivative := (err - p.prevErr[i]) / dt
			effort[i] = p.Kp*err + p.Ki*p.integral[i] + p.Kd*derivative
		default:
			effort[i] = p.Kp * err
		}
		p.prevErr[i] = err
	}
	p.prevT = t
	p.first = false

	return p.output(effort)
}

func (p *PID) output(effort []float64) dynamo.Control {
	rows, _ := p.mix.Dims()
	var u mat.VecDense
	u.MulVec(p.mix, mat.NewVecDense(len(effort), effort))

	out := make(dynamo.Control, rows)
	for i := range out {
		out[i] = u.AtVec(i)
		if i < len(p.Bias) {
			out[i] += p.Bias[i]
		}
	}
	if p.Bounds != nil {
		out = p.Bounds.Clip(out)
	}
	return out
}
