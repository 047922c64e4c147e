// Package physics provides the simulated systems used as control targets.
//
// Each model implements [Model], a [dynamo.System] that also owns its state,
// applied control, simulated time and parameter set:
//
//   - [MovingCoil]: coil on a line between two fixed coils
//   - [MovingCoil2D]: coil in a disc surrounded by N fixed coils
//   - [Tank]: water tank with square-root outflow
//
// Models advance one explicit Euler step of dt_sim per [Model.Step] call and
// apply their clamping policy afterwards. Sub-stepping is the caller's job:
//
//	m, _ := physics.NewTank(map[string]any{"alpha": 0.5})
//	_ = m.SetControl(dynamo.Control{1.2})
//	for i := 0; i < nSub; i++ {
//	    m.Step()
//	}
//	if err := m.CheckDivergence(); err != nil {
//	    // episode over
//	}
//
// # Parameters
//
// Constructors take an override map keyed by parameter name. Unknown names
// fail with [dynamo.ErrConfiguration]. [Model.WriteConfig] and
// [Model.ReadConfig] round-trip the parameters through a commented TOML file.
package physics
