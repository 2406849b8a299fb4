package physics

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/geom"
)

var ErrUnknownBody = errors.New("physics: unknown body")

// Handle identifies a body inside an Engine.
type Handle int

// Shape is what an engine needs to know to simulate a body: its mass,
// principal inertia and a collision radius.
type Shape struct {
	Mass    float64
	Inertia r3.Vec
	Radius  float64
}

// Engine is the boundary between the tick scheduler and whatever steps the
// rigid-body dynamics. Velocities, forces and torques are world-frame.
type Engine interface {
	CreateBody(shape Shape, pose geom.Pose) (Handle, error)
	RemoveBody(h Handle) error
	SetPose(h Handle, pose geom.Pose) error
	SetVelocity(h Handle, linear, angular r3.Vec) error
	Pose(h Handle) (geom.Pose, error)
	Velocity(h Handle) (linear, angular r3.Vec, err error)
	// ApplyForce accumulates a force acting at a world point until the next
	// Step.
	ApplyForce(h Handle, point, force r3.Vec) error
	ApplyTorque(h Handle, torque r3.Vec) error
	Step() error
	Dt() float64
}
