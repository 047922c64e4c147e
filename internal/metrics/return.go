package metrics

import (
	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/env"
)

// Return is the discounted sum of rewards, each reward weighted by the
// product of the discounts of the steps before it.
type Return struct {
	name  string
	sum   float64
	scale float64
}

func NewReturn() *Return {
	return &Return{name: "discounted_return", scale: 1}
}

func (r *Return) Name() string { return r.name }

func (r *Return) Observe(ts env.TimeStep, u dynamo.Control, t float64) {
	r.sum += r.scale * ts.Reward
	r.scale *= ts.Discount
}

func (r *Return) Value() float64 { return r.sum }

func (r *Return) Reset() {
	r.sum = 0
	r.scale = 1
}
