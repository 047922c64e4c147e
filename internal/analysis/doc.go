// Package analysis characterises episode traces.
//
// [Response] reads a reference step out of a trace and reports the classic
// step response figures:
//
//   - rise time from 10% to 90% of the step
//   - overshoot as a fraction of the step
//   - settling time into a band around the final reference
//   - steady state error at the end of the trace
//
// Traces come either from an [env.Result] via [FromResult] or from a stored
// episode CSV via [FromTable].
package analysis
