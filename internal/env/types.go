package env

import "github.com/san-kum/ctrlenv/internal/dynamo"

type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "first"
	case Mid:
		return "mid"
	case Last:
		return "last"
	}
	return "unknown"
}

// TimeStep is what the environment hands back after Reset and Step. Reward
// is 0 on the First step.
type TimeStep struct {
	Type        StepType
	Reward      float64
	Discount    float64
	Observation []float64
}

func (ts TimeStep) First() bool { return ts.Type == First }
func (ts TimeStep) Mid() bool   { return ts.Type == Mid }
func (ts TimeStep) Last() bool  { return ts.Type == Last }

// Policy picks the action for an observation at simulated time t.
type Policy interface {
	Compute(obs []float64, t float64) dynamo.Control
}

// Resetter is implemented by stateful policies and metrics that need
// clearing between episodes.
type Resetter interface {
	Reset()
}

// Metric summarises one episode. Observe is called after every control step
// with the action that produced ts.
type Metric interface {
	Name() string
	Observe(ts TimeStep, u dynamo.Control, t float64)
	Value() float64
	Reset()
}
