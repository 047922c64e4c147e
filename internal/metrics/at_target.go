package metrics

import (
	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/env"
)

// TimeAtTarget is the fraction of steps whose reward reached threshold. With
// the Gaussian task reward, a threshold of exp(-1/2) means within one sigma.
type TimeAtTarget struct {
	name      string
	threshold float64
	hits      int
	samples   int
}

func NewTimeAtTarget(threshold float64) *TimeAtTarget {
	return &TimeAtTarget{
		name:      "time_at_target",
		threshold: threshold,
	}
}

func (a *TimeAtTarget) Name() string {
	return a.name
}

func (a *TimeAtTarget) Observe(ts env.TimeStep, u dynamo.Control, t float64) {
	a.samples++
	if ts.Reward >= a.threshold {
		a.hits++
	}
}

func (a *TimeAtTarget) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return float64(a.hits) / float64(a.samples)
}

func (a *TimeAtTarget) Reset() {
	a.hits = 0
	a.samples = 0
}
