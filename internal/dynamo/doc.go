// Package dynamo provides core primitives for continuous-time models.
//
// The package defines the fundamental interfaces and types shared by the
// physics engine and its integrators:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - [Configurable]: models exposing tunable parameters
//
// # Example
//
//	body := physics.NewWorld(dt)
//	integ := integrators.NewRK4()
//	next := integ.Step(sys, x, u, t, dt)
//
// Errors raised while stepping are wrapped in [SimulationError] so callers
// can recover the tick and time at which the model diverged.
package dynamo
