package integrators

import "github.com/san-kum/ctrlenv/internal/dynamo"

// Euler is the explicit (forward) Euler method: x + dt*F(x, u).
type Euler struct{}

var _ dynamo.Integrator = (*Euler)(nil)

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	return x.Add(dyn.Derive(x, u, t).Scale(dt))
}
