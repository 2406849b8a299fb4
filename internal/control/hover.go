package control

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/dynamo"
	"github.com/san-kum/flightlab/internal/pilot"
)

const gravity = 9.81

// Hover holds an altitude and a level, constant-heading attitude using
// only the two markers. Pitch is not observable from markers on the body
// y axis, so it is left alone.
type Hover struct {
	Altitude float64
	Mass     float64
	Dt       float64

	alt   *PID
	att   *LQR
	yaw0  float64
	roll  float64
	yaw   float64
	first bool

	AltErr float64 `log:"alt_err"`
	Thrust float64 `log:"thrust"`
}

func NewHover(altitude, mass, dt float64) *Hover {
	alt := NewPID(2, 0.5, 1.5, altitude)
	alt.IntegralLimit = 2
	return &Hover{
		Altitude: altitude,
		Mass:     mass,
		Dt:       dt,
		alt:      alt,
		att:      NewAttitudeLQR(),
	}
}

func (h *Hover) Reset(init pilot.Initial) error {
	h.alt.Reset()
	h.alt.Target = h.Altitude
	h.yaw0 = init.Yaw
	h.first = true
	return nil
}

func (h *Hover) VariablesToLog() []string { return []string{"alt_err", "thrust"} }

func (h *Hover) Color() pilot.Color { return pilot.Color{0.2, 0.6, 1.0} }

func (h *Hover) Run(s pilot.Sensors) (pilot.Command, error) {
	mid := r3.Scale(0.5, r3.Add(s.Markers[0], s.Markers[1]))
	roll, yaw := MarkerAttitude(s.Markers)

	var rollRate, yawRate float64
	if !h.first {
		rollRate = (roll - h.roll) / h.Dt
		yawRate = wrap(yaw-h.yaw) / h.Dt
	}
	h.roll, h.yaw, h.first = roll, yaw, false

	u := h.att.Compute(dynamo.State{roll, rollRate, wrap(yaw - h.yaw0), yawRate})

	h.AltErr = h.Altitude - mid.Z
	h.Thrust = math.Max(0, h.Mass*gravity+h.alt.Update(mid.Z, h.Dt)) / math.Max(math.Cos(roll), 0.5)

	return pilot.Command{TauX: u[0], TauZ: u[1], Fz: h.Thrust}, nil
}

// MarkerAttitude recovers roll and yaw from the markers at (0, +l, 0) and
// (0, -l, 0), assuming small pitch.
func MarkerAttitude(m [2]r3.Vec) (roll, yaw float64) {
	base := r3.Sub(m[0], m[1])
	if r3.Norm(base) == 0 {
		return 0, 0
	}
	y := r3.Unit(base)
	roll = math.Asin(math.Max(-1, math.Min(1, y.Z)))
	yaw = math.Atan2(-y.X, y.Y)
	return roll, yaw
}

func wrap(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
