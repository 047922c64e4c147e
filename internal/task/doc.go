// Package task turns a physics model into a control problem: it picks the
// reference, builds observations, scores the state and forwards actions.
//
// Two tasks exist, [Step] and [HoldTarget]. Both are parameterised by a
// [Variant] so the same code serves the moving coil, the 2D moving coil and
// the tank.
package task
