package controllers

import "github.com/san-kum/ctrlenv/internal/dynamo"

// Constant applies the same action at every step.
type Constant struct {
	U dynamo.Control
}

func NewConstant(u dynamo.Control) *Constant {
	return &Constant{U: u.Clone()}
}

// NewZero is the open loop policy: no current, no inflow.
func NewZero(dim int) *Constant {
	return &Constant{U: make(dynamo.Control, dim)}
}

func (c *Constant) Compute(obs []float64, t float64) dynamo.Control {
	return c.U.Clone()
}
