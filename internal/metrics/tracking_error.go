package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/env"
)

// TrackingError is the root mean square distance between reference and
// position, read from observations laid out as [reference, state].
type TrackingError struct {
	name    string
	refDim  int
	sumSq   float64
	samples int
}

func NewTrackingError(refDim int) *TrackingError {
	return &TrackingError{name: "tracking_error", refDim: refDim}
}

func (e *TrackingError) Name() string { return e.name }

func (e *TrackingError) Observe(ts env.TimeStep, u dynamo.Control, t float64) {
	n := e.refDim
	if len(ts.Observation) < 2*n {
		return
	}
	d := floats.Distance(ts.Observation[:n], ts.Observation[n:2*n], 2)
	e.sumSq += d * d
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *TrackingError) Reset() {
	e.sumSq = 0
	e.samples = 0
}
