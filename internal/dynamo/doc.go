// Package dynamo provides the primitives shared by every control environment.
//
// The package defines the vector types and the error taxonomy:
//
//   - [State]: fixed-length physical state vector
//   - [Control]: actuator vector held constant over one or more steps
//   - [System]: right-hand side of dX/dt = F(X, u)
//   - [Integrator]: numerical stepper over a [System]
//
// # Errors
//
// Construction and assignment fail eagerly with [ErrConfiguration] or
// [ErrDimensionMismatch]. A terminal physical condition is reported as a
// [*Divergence], which unwraps to [ErrDivergence]:
//
//	if err := model.CheckDivergence(); errors.Is(err, dynamo.ErrDivergence) {
//	    // end the episode
//	}
//
// # Thread Safety
//
// Nothing in this module is safe for concurrent use. Each model/task pair
// belongs to one driver loop.
package dynamo
