package physics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/dynamo"
	"github.com/san-kum/flightlab/internal/geom"
	"github.com/san-kum/flightlab/internal/integrators"
)

const DefaultGravity = 9.81

type WorldConfig struct {
	Dt             float64 `yaml:"-"`
	Gravity        float64 `yaml:"gravity"`
	LinearDamping  float64 `yaml:"linear_damping"`
	AngularDamping float64 `yaml:"angular_damping"`
	Ground         bool    `yaml:"ground"`
	GroundZ        float64 `yaml:"ground_z"`
	Restitution    float64 `yaml:"restitution"`
	Friction       float64 `yaml:"friction"`
	Integrator     string  `yaml:"integrator"`
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Dt:             0.04,
		Gravity:        DefaultGravity,
		LinearDamping:  0.05,
		AngularDamping: 0.05,
		Ground:         true,
		Restitution:    0.2,
		Friction:       0.5,
		Integrator:     "rk4",
	}
}

// State layout of one body.
const (
	ixPos   = 0
	ixQ     = 3
	ixVel   = 7
	ixW     = 10
	bodyDim = 13
)

type body struct {
	shape  Shape
	state  dynamo.State
	force  r3.Vec
	torque r3.Vec
}

// World is a small rigid-body engine. Each body is integrated independently;
// bodies do not collide with one another, only with the ground plane.
type World struct {
	cfg    WorldConfig
	integ  dynamo.Integrator
	bodies map[Handle]*body
	next   Handle
	steps  int
	time   float64
}

func NewWorld(cfg WorldConfig) (*World, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrParameterBounds, cfg.Dt)
	}
	integ, err := integrators.ByName(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	return &World{cfg: cfg, integ: integ, bodies: make(map[Handle]*body)}, nil
}

func (w *World) Dt() float64 { return w.cfg.Dt }

// Time is the simulated time elapsed since the world was created.
func (w *World) Time() float64 { return w.time }

func (w *World) Bodies() int { return len(w.bodies) }

func (w *World) CreateBody(shape Shape, pose geom.Pose) (Handle, error) {
	if shape.Mass <= 0 || shape.Inertia.X <= 0 || shape.Inertia.Y <= 0 || shape.Inertia.Z <= 0 {
		return 0, fmt.Errorf("%w: mass and inertia must be positive", dynamo.ErrParameterBounds)
	}
	b := &body{shape: shape, state: make(dynamo.State, bodyDim)}
	setPose(b.state, pose)
	h := w.next
	w.next++
	w.bodies[h] = b
	return h, nil
}

func (w *World) get(h Handle) (*body, error) {
	b, ok := w.bodies[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, h)
	}
	return b, nil
}

func (w *World) RemoveBody(h Handle) error {
	if _, err := w.get(h); err != nil {
		return err
	}
	delete(w.bodies, h)
	return nil
}

func (w *World) SetPose(h Handle, pose geom.Pose) error {
	b, err := w.get(h)
	if err != nil {
		return err
	}
	setPose(b.state, pose)
	return nil
}

func (w *World) SetVelocity(h Handle, linear, angular r3.Vec) error {
	b, err := w.get(h)
	if err != nil {
		return err
	}
	putVec(b.state, ixVel, linear)
	// angular velocity is stored in the body frame
	putVec(b.state, ixW, geom.Inverse(rotationOf(b.state)).Rotate(angular))
	return nil
}

func (w *World) Pose(h Handle) (geom.Pose, error) {
	b, err := w.get(h)
	if err != nil {
		return geom.Pose{}, err
	}
	return geom.Pose{Position: vecAt(b.state, ixPos), Rotation: geom.Normalize(rotationOf(b.state))}, nil
}

func (w *World) Velocity(h Handle) (r3.Vec, r3.Vec, error) {
	b, err := w.get(h)
	if err != nil {
		return r3.Vec{}, r3.Vec{}, err
	}
	return vecAt(b.state, ixVel), rotationOf(b.state).Rotate(vecAt(b.state, ixW)), nil
}

func (w *World) ApplyForce(h Handle, point, force r3.Vec) error {
	b, err := w.get(h)
	if err != nil {
		return err
	}
	b.force = r3.Add(b.force, force)
	arm := r3.Sub(point, vecAt(b.state, ixPos))
	b.torque = r3.Add(b.torque, r3.Cross(arm, force))
	return nil
}

func (w *World) ApplyTorque(h Handle, torque r3.Vec) error {
	b, err := w.get(h)
	if err != nil {
		return err
	}
	b.torque = r3.Add(b.torque, torque)
	return nil
}

// Step advances every body by Dt and clears the force accumulators. A
// diverged body is fatal: the world is left in the failed state.
func (w *World) Step() error {
	handles := make([]Handle, 0, len(w.bodies))
	for h := range w.bodies {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	for _, h := range handles {
		b := w.bodies[h]
		rot := rotationOf(b.state)
		tb := geom.Inverse(rot).Rotate(b.torque)
		u := dynamo.Control{b.force.X, b.force.Y, b.force.Z, tb.X, tb.Y, tb.Z}
		sys := &rigidBody{shape: b.shape, cfg: &w.cfg}
		next := w.integ.Step(sys, b.state, u, w.time, w.cfg.Dt)
		if !next.IsValid() {
			return &dynamo.SimulationError{
				Step:    w.steps,
				Time:    w.time,
				Wrapped: fmt.Errorf("%w: body %d", dynamo.ErrUnstable, h),
			}
		}
		if w.cfg.Ground {
			w.contact(b.shape, next)
		}
		b.state = next
		b.force = r3.Vec{}
		b.torque = r3.Vec{}
	}
	w.steps++
	w.time += w.cfg.Dt
	return nil
}

func (w *World) contact(shape Shape, x dynamo.State) {
	floor := w.cfg.GroundZ + shape.Radius
	if x[ixPos+2] >= floor {
		return
	}
	x[ixPos+2] = floor
	if x[ixVel+2] < 0 {
		x[ixVel+2] = -w.cfg.Restitution * x[ixVel+2]
	}
	keep := 1 - w.cfg.Friction
	x[ixVel] *= keep
	x[ixVel+1] *= keep
	for i := 0; i < 3; i++ {
		x[ixW+i] *= keep
	}
}

// rigidBody is the 13-dimensional Newton-Euler model of one body. The
// control vector is the world force followed by the body-frame torque.
type rigidBody struct {
	shape Shape
	cfg   *WorldConfig
}

func (r *rigidBody) StateDim() int   { return bodyDim }
func (r *rigidBody) ControlDim() int { return 6 }

// Project keeps the orientation a unit quaternion between RK stages.
func (r *rigidBody) Project(x dynamo.State) { normalizeQuat(x) }

func (r *rigidBody) Derive(x dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	dx := make(dynamo.State, bodyDim)
	v := vecAt(x, ixVel)
	w := vecAt(x, ixW)
	q := rotationOf(x)

	putVec(dx, ixPos, v)

	// q' = q * (0, w) / 2 with w in the body frame
	dq := r3.Rotation{
		Real: -0.5 * (q.Imag*w.X + q.Jmag*w.Y + q.Kmag*w.Z),
		Imag: 0.5 * (q.Real*w.X + q.Jmag*w.Z - q.Kmag*w.Y),
		Jmag: 0.5 * (q.Real*w.Y + q.Kmag*w.X - q.Imag*w.Z),
		Kmag: 0.5 * (q.Real*w.Z + q.Imag*w.Y - q.Jmag*w.X),
	}
	dx[ixQ], dx[ixQ+1], dx[ixQ+2], dx[ixQ+3] = dq.Real, dq.Imag, dq.Jmag, dq.Kmag

	m := r.shape.Mass
	acc := r3.Vec{
		X: u[0]/m - r.cfg.LinearDamping*v.X,
		Y: u[1]/m - r.cfg.LinearDamping*v.Y,
		Z: u[2]/m - r.cfg.Gravity - r.cfg.LinearDamping*v.Z,
	}
	putVec(dx, ixVel, acc)

	I := r.shape.Inertia
	Iw := r3.Vec{X: I.X * w.X, Y: I.Y * w.Y, Z: I.Z * w.Z}
	gyro := r3.Cross(w, Iw)
	alpha := r3.Vec{
		X: (u[3]-gyro.X)/I.X - r.cfg.AngularDamping*w.X,
		Y: (u[4]-gyro.Y)/I.Y - r.cfg.AngularDamping*w.Y,
		Z: (u[5]-gyro.Z)/I.Z - r.cfg.AngularDamping*w.Z,
	}
	putVec(dx, ixW, alpha)
	return dx
}

func vecAt(x dynamo.State, i int) r3.Vec {
	return r3.Vec{X: x[i], Y: x[i+1], Z: x[i+2]}
}

func putVec(x dynamo.State, i int, v r3.Vec) {
	x[i], x[i+1], x[i+2] = v.X, v.Y, v.Z
}

// rotationOf reads the body quaternion without changing its sign; flipping
// it mid-integration would pair q with the derivative of -q.
func rotationOf(x dynamo.State) r3.Rotation {
	return geom.Unit(r3.Rotation{Real: x[ixQ], Imag: x[ixQ+1], Jmag: x[ixQ+2], Kmag: x[ixQ+3]})
}

func setPose(x dynamo.State, p geom.Pose) {
	putVec(x, ixPos, p.Position)
	q := geom.Normalize(p.Rotation)
	x[ixQ], x[ixQ+1], x[ixQ+2], x[ixQ+3] = q.Real, q.Imag, q.Jmag, q.Kmag
}

func normalizeQuat(x dynamo.State) {
	n := math.Sqrt(x[ixQ]*x[ixQ] + x[ixQ+1]*x[ixQ+1] + x[ixQ+2]*x[ixQ+2] + x[ixQ+3]*x[ixQ+3])
	if n == 0 {
		x[ixQ] = 1
		return
	}
	for i := ixQ; i < ixQ+4; i++ {
		x[i] /= n
	}
}
