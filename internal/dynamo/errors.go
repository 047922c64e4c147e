package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for environment construction, stepping and recording.
var (
	// ErrConfiguration indicates an unknown parameter key or an unusable parameter value.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrDimensionMismatch indicates an action, state or coil list of the wrong length.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrDivergence indicates a terminal physical condition. Drivers end the episode on it.
	ErrDivergence = errors.New("dynamo: physics diverged")

	// ErrRecorder indicates an episode recorder that cannot be packed.
	ErrRecorder = errors.New("dynamo: episode recorder")
)

// Divergence carries the cause of a terminal physical condition.
type Divergence struct {
	Cause string
	Time  float64
	State State
}

func (e *Divergence) Error() string {
	return fmt.Sprintf("physics diverged at t=%.4f: %s", e.Time, e.Cause)
}

func (e *Divergence) Unwrap() error {
	return ErrDivergence
}

// Diverged builds a Divergence for state x at time t.
func Diverged(cause string, t float64, x State) *Divergence {
	return &Divergence{Cause: cause, Time: t, State: x.Clone()}
}

// Mismatch wraps ErrDimensionMismatch with the offending field.
func Mismatch(what string, want, got int) error {
	return fmt.Errorf("%w: %s has length %d, expected %d", ErrDimensionMismatch, what, got, want)
}
