// Package physics is the rigid-body side of the arena.
//
// [Engine] is the boundary the tick scheduler talks to: it creates bodies,
// accepts world-frame forces and torques, and steps time forward by a fixed
// Dt. [World] is the built-in implementation, a Newton-Euler integrator
// over 13-dimensional body states (position, quaternion, linear velocity,
// body angular velocity) with gravity, damping and a ground plane.
//
// [Quadrotor] describes the raced airframe and yields the actuator model
// consumed by the allocator:
//
//	q := physics.NewQuadrotor()
//	lower, upper := q.ActuatorBounds()
//	alloc, err := allocator.FromActuatorModel(q.ActuatorModel(), lower, upper)
package physics
