package physics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/dynamo"
)

// Quadrotor holds the airframe parameters of the raced vehicle. Motors 1
// and 2 sit on the body x axis, 3 and 4 on the body y axis; the actuator
// values are squared spin rates.
type Quadrotor struct {
	Mass      float64 `yaml:"mass"`
	Ixx       float64 `yaml:"ixx"`
	Iyy       float64 `yaml:"iyy"`
	Izz       float64 `yaml:"izz"`
	ArmLength float64 `yaml:"arm_length"`
	KF        float64 `yaml:"k_f"`
	KM        float64 `yaml:"k_m"`
	SpinMin   float64 `yaml:"spin_min"`
	SpinMax   float64 `yaml:"spin_max"`
	Radius    float64 `yaml:"radius"`
}

func NewQuadrotor() *Quadrotor {
	return &Quadrotor{
		Mass:      0.5,
		Ixx:       0.0023,
		Iyy:       0.0023,
		Izz:       0.004,
		ArmLength: 0.175,
		KF:        7e-6,
		KM:        1e-7,
		SpinMin:   100,
		SpinMax:   900,
		Radius:    0.1,
	}
}

func (q *Quadrotor) Shape() Shape {
	return Shape{
		Mass:    q.Mass,
		Inertia: r3.Vec{X: q.Ixx, Y: q.Iyy, Z: q.Izz},
		Radius:  q.Radius,
	}
}

// ActuatorModel maps squared spin rates to [tau_x, tau_y, tau_z, f_z].
func (q *Quadrotor) ActuatorModel() *mat.Dense {
	kl := q.KF * q.ArmLength
	return mat.NewDense(4, 4, []float64{
		0, 0, kl, -kl,
		-kl, kl, 0, 0,
		-q.KM, -q.KM, q.KM, q.KM,
		q.KF, q.KF, q.KF, q.KF,
	})
}

func (q *Quadrotor) ActuatorBounds() (lower, upper []float64) {
	lo, hi := q.SpinMin*q.SpinMin, q.SpinMax*q.SpinMax
	return []float64{lo, lo, lo, lo}, []float64{hi, hi, hi, hi}
}

// Markers are the body-frame positions of the two tracked markers.
func (q *Quadrotor) Markers() [2]r3.Vec {
	return [2]r3.Vec{{Y: q.ArmLength}, {Y: -q.ArmLength}}
}

func (q *Quadrotor) HoverThrust() float64 {
	return q.Mass * DefaultGravity
}

func (q *Quadrotor) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":       q.Mass,
		"ixx":        q.Ixx,
		"iyy":        q.Iyy,
		"izz":        q.Izz,
		"arm_length": q.ArmLength,
		"k_f":        q.KF,
		"k_m":        q.KM,
		"spin_min":   q.SpinMin,
		"spin_max":   q.SpinMax,
		"radius":     q.Radius,
	}
}

func (q *Quadrotor) SetParam(name string, value float64) error {
	if value < 0 || (value == 0 && name != "spin_min" && name != "radius") {
		return fmt.Errorf("%w: %s=%g", dynamo.ErrParameterBounds, name, value)
	}
	switch name {
	case "mass":
		q.Mass = value
	case "ixx":
		q.Ixx = value
	case "iyy":
		q.Iyy = value
	case "izz":
		q.Izz = value
	case "arm_length":
		q.ArmLength = value
	case "k_f":
		q.KF = value
	case "k_m":
		q.KM = value
	case "spin_min":
		if value >= q.SpinMax {
			return fmt.Errorf("%w: spin_min must be below spin_max", dynamo.ErrParameterBounds)
		}
		q.SpinMin = value
	case "spin_max":
		if value <= q.SpinMin {
			return fmt.Errorf("%w: spin_max must exceed spin_min", dynamo.ErrParameterBounds)
		}
		q.SpinMax = value
	case "radius":
		q.Radius = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParameter, name)
	}
	return nil
}

var _ dynamo.Configurable = (*Quadrotor)(nil)
