package pilot

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Controller is what every pilot implements. Reset is called once per
// episode before the first tick, Run once per tick while the agent flies.
type Controller interface {
	Reset(init Initial) error
	Run(s Sensors) (Command, error)
}

// Factory constructs a fresh controller. Returning an error or panicking
// rejects the agent.
type Factory func() (Controller, error)

// Colorer is optionally implemented to choose the agent's display color.
type Colorer interface {
	Color() Color
}

// VariableLogger is optionally implemented to record extra telemetry. Each
// name must resolve to an exported field (or a field tagged `log:"name"`)
// holding a number, a bool, or an array, slice or struct of numbers.
type VariableLogger interface {
	VariablesToLog() []string
}

// Initial holds the noisy measurements available before take-off.
type Initial struct {
	PX, PY, PZ float64
	Yaw        float64
}

// Sensors is the read-only snapshot handed to Run each tick.
type Sensors struct {
	// Markers are the world positions of the two body-fixed markers at
	// (0, +l, 0) and (0, -l, 0), with measurement noise.
	Markers [2]r3.Vec
	// RingPos and RingDir are the center and normal of the target ring.
	RingPos    r3.Vec
	RingDir    r3.Vec
	IsLastRing bool
	// Others holds the positions of all other active agents at the start
	// of this tick.
	Others []r3.Vec
}

// Command is the requested body-frame torque and thrust.
type Command struct {
	TauX, TauY, TauZ float64
	Fz               float64
}

func (c Command) Vector() []float64 {
	return []float64{c.TauX, c.TauY, c.TauZ, c.Fz}
}

func CommandFromVector(v []float64) Command {
	var c Command
	if len(v) == 4 {
		c = Command{TauX: v[0], TauY: v[1], TauZ: v[2], Fz: v[3]}
	}
	return c
}

func (c Command) IsFinite() bool {
	for _, v := range c.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Color is an RGB triple in [0, 1].
type Color [3]float64

var palette = []Color{
	{0.12, 0.47, 0.71},
	{1.00, 0.50, 0.05},
	{0.17, 0.63, 0.17},
	{0.84, 0.15, 0.16},
	{0.58, 0.40, 0.74},
	{0.55, 0.34, 0.29},
	{0.89, 0.47, 0.76},
	{0.50, 0.50, 0.50},
	{0.74, 0.74, 0.13},
	{0.09, 0.75, 0.81},
}

// DefaultColor cycles through a fixed palette by agent index.
func DefaultColor(i int) Color {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

func (c Color) Hex() string {
	to := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	const digits = "0123456789abcdef"
	out := []byte{'#'}
	for _, v := range c {
		b := to(v)
		out = append(out, digits[b>>4], digits[b&0x0f])
	}
	return string(out)
}
