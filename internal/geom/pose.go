package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	UnitX = r3.Vec{X: 1}
	UnitY = r3.Vec{Y: 1}
	UnitZ = r3.Vec{Z: 1}
)

// Identity is the zero rotation. The zero value of r3.Rotation is not a
// rotation, so every helper here maps it to Identity.
func Identity() r3.Rotation {
	return r3.Rotation{Real: 1}
}

// Pose is a rigid frame: a position and the rotation taking local
// coordinates to world coordinates.
type Pose struct {
	Position r3.Vec
	Rotation r3.Rotation
}

func NewPose(pos r3.Vec, rot r3.Rotation) Pose {
	return Pose{Position: pos, Rotation: Normalize(rot)}
}

func (p Pose) rotation() r3.Rotation {
	if p.Rotation == (r3.Rotation{}) {
		return Identity()
	}
	return p.Rotation
}

// ToLocal expresses the world point q in this frame.
func (p Pose) ToLocal(q r3.Vec) r3.Vec {
	return Inverse(p.rotation()).Rotate(r3.Sub(q, p.Position))
}

// ToWorld maps the local point q to world coordinates.
func (p Pose) ToWorld(q r3.Vec) r3.Vec {
	return r3.Add(p.Position, p.rotation().Rotate(q))
}

// Axis returns column i of the rotation matrix (0=x, 1=y, 2=z).
func (p Pose) Axis(i int) r3.Vec {
	switch i {
	case 0:
		return p.rotation().Rotate(UnitX)
	case 1:
		return p.rotation().Rotate(UnitY)
	default:
		return p.rotation().Rotate(UnitZ)
	}
}

func (p Pose) Euler() (roll, pitch, yaw float64) {
	return Euler(p.rotation())
}

func Inverse(r r3.Rotation) r3.Rotation {
	return r3.Rotation(quat.Conj(quat.Number(r)))
}

// Compose returns the rotation applying b first and then a.
func Compose(a, b r3.Rotation) r3.Rotation {
	return Normalize(r3.Rotation(quat.Mul(quat.Number(a), quat.Number(b))))
}

// Unit rescales r to unit length and keeps its sign, so q and its
// time derivative stay consistent while integrating.
func Unit(r r3.Rotation) r3.Rotation {
	n := quat.Abs(quat.Number(r))
	if n == 0 || math.IsNaN(n) {
		return Identity()
	}
	return r3.Rotation(quat.Scale(1/n, quat.Number(r)))
}

// Normalize is Unit with the real part made non-negative. q and -q are the
// same rotation; this picks one for reporting.
func Normalize(r r3.Rotation) r3.Rotation {
	u := Unit(r)
	if u.Real < 0 {
		return r3.Rotation(quat.Scale(-1, quat.Number(u)))
	}
	return u
}

// FromEuler builds R = Rz(yaw) * Ry(pitch) * Rx(roll).
func FromEuler(roll, pitch, yaw float64) r3.Rotation {
	qx := r3.NewRotation(roll, UnitX)
	qy := r3.NewRotation(pitch, UnitY)
	qz := r3.NewRotation(yaw, UnitZ)
	return Compose(Compose(qz, qy), qx)
}

// Euler inverts FromEuler. Pitch is clamped to [-pi/2, pi/2].
func Euler(r r3.Rotation) (roll, pitch, yaw float64) {
	w, x, y, z := r.Real, r.Imag, r.Jmag, r.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	s := 2 * (w*y - z*x)
	s = math.Max(-1, math.Min(1, s))
	pitch = math.Asin(s)
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}
