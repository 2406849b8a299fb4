package gates

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/geom"
)

var ErrEmptyCourse = errors.New("gates: course has no gates")

// Gate is a ring whose local x axis is its normal. Agents pass through it
// in the +x direction.
type Gate struct {
	Index  int
	Pose   geom.Pose
	Radius float64
	Width  float64
}

func (g Gate) Local(p r3.Vec) r3.Vec {
	return g.Pose.ToLocal(p)
}

func (g Gate) Center() r3.Vec { return g.Pose.Position }

func (g Gate) Normal() r3.Vec { return g.Pose.Axis(0) }

// InDisk reports whether a local point projects inside the ring opening.
func (g Gate) InDisk(local r3.Vec) bool {
	return local.Y*local.Y+local.Z*local.Z <= g.Radius*g.Radius
}

// Contains reports whether the world point lies inside the ring volume.
func (g Gate) Contains(p r3.Vec) bool {
	q := g.Local(p)
	if q.X > g.Width/2 || q.X < -g.Width/2 {
		return false
	}
	return g.InDisk(q)
}

func (g Gate) crossedForward(from, to r3.Vec) bool {
	a, b := g.Local(from), g.Local(to)
	if !g.InDisk(a) || !g.InDisk(b) {
		return false
	}
	return a.X <= 0 && b.X > 0
}

func (g Gate) crossedBackward(from, to r3.Vec) bool {
	a, b := g.Local(from), g.Local(to)
	if !g.InDisk(a) || !g.InDisk(b) {
		return false
	}
	return a.X >= 0 && b.X < 0
}

// Course is the ordered, immutable gate sequence of an episode.
type Course []Gate

// GateSpec describes one gate in configuration: position, roll/pitch/yaw in
// radians, opening radius and thickness.
type GateSpec struct {
	Position [3]float64 `yaml:"position" json:"position"`
	RPY      [3]float64 `yaml:"rpy" json:"rpy"`
	Radius   float64    `yaml:"radius" json:"radius"`
	Width    float64    `yaml:"width" json:"width"`
}

func CourseFromSpec(specs []GateSpec) (Course, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyCourse
	}
	c := make(Course, 0, len(specs))
	for i, s := range specs {
		if s.Radius <= 0 || s.Width <= 0 {
			return nil, fmt.Errorf("gate %d: radius and width must be positive", i)
		}
		c = append(c, newGate(i, s))
	}
	return c, nil
}

func newGate(i int, s GateSpec) Gate {
	pos := r3.Vec{X: s.Position[0], Y: s.Position[1], Z: s.Position[2]}
	return Gate{
		Index:  i,
		Pose:   geom.NewPose(pos, geom.FromEuler(s.RPY[0], s.RPY[1], s.RPY[2])),
		Radius: s.Radius,
		Width:  s.Width,
	}
}

func (c Course) Len() int { return len(c) }

// Specs returns the configuration form of the course.
func (c Course) Specs() []GateSpec {
	out := make([]GateSpec, len(c))
	for i, g := range c {
		roll, pitch, yaw := g.Pose.Euler()
		out[i] = GateSpec{
			Position: [3]float64{g.Pose.Position.X, g.Pose.Position.Y, g.Pose.Position.Z},
			RPY:      [3]float64{roll, pitch, yaw},
			Radius:   g.Radius,
			Width:    g.Width,
		}
	}
	return out
}
