package sim

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/physics"
	"github.com/san-kum/flightlab/internal/placement"
	"github.com/san-kum/flightlab/internal/sandbox"
)

// Bounds is the open box agents must stay inside.
type Bounds struct {
	Min r3.Vec
	Max r3.Vec
}

func (b Bounds) Contains(p r3.Vec) bool {
	return p.X > b.Min.X && p.X < b.Max.X &&
		p.Y > b.Min.Y && p.Y < b.Max.Y &&
		p.Z > b.Min.Z && p.Z < b.Max.Z
}

// ArenaBounds is the 40x30 m platform centered on centerX, from 5 m below
// the ground to 20 m above it.
func ArenaBounds(centerX float64) Bounds {
	return Bounds{
		Min: r3.Vec{X: centerX - 20, Y: -15, Z: -5},
		Max: r3.Vec{X: centerX + 20, Y: 15, Z: 20},
	}
}

// Activity configures the inactivity check: an agent whose every
// coordinate spans less than Distance over the last Window ticks is out.
type Activity struct {
	Window   int
	Distance float64
}

// Noise holds standard deviations. Zero disables a source.
type Noise struct {
	Marker          float64
	Attitude        float64
	Velocity        float64
	AngularVelocity float64
	Measurement     float64
}

type Config struct {
	MaxTicks     int
	MaxAgents    int
	Seed         int64
	GateStart    int
	LaunchHeight float64
	Rules        sandbox.Rules
	Budgets      sandbox.Budgets
	Activity     Activity
	Bounds       Bounds
	Noise        Noise
	Placement    placement.Solver
	Shape        physics.Shape
	Markers      [2]r3.Vec
}

func DefaultConfig(dt float64) Config {
	q := physics.NewQuadrotor()
	return Config{
		MaxAgents:    40,
		GateStart:    1,
		LaunchHeight: 0.3,
		Rules:        sandbox.DefaultRules(),
		Budgets:      sandbox.DefaultBudgets(),
		Activity:     Activity{Window: 1 + int(10/dt), Distance: 0.1},
		Bounds:       ArenaBounds(0),
		Noise: Noise{
			Marker:          0.005,
			Attitude:        0.05,
			Velocity:        0.05,
			AngularVelocity: 0.05,
			Measurement:     0.01,
		},
		Placement: placement.DefaultSolver(0.25, 2.5),
		Shape:     q.Shape(),
		Markers:   q.Markers(),
	}
}
