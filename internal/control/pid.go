package control

import (
	"fmt"
	"math"

	"github.com/san-kum/flightlab/internal/dynamo"
)

// PID is a scalar PID loop with a clamped integral. The derivative acts on
// the error, so the first update after Reset has no derivative kick.
type PID struct {
	Kp            float64
	Ki            float64
	Kd            float64
	Target        float64
	IntegralLimit float64
	integral      float64
	prevErr       float64
	first         bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

// Update returns the control for a measurement taken dt after the last one.
func (p *PID) Update(measured, dt float64) float64 {
	err := p.Target - measured

	if p.first || dt <= 0 {
		p.prevErr = err
		p.first = false
		return p.Kp * err
	}

	p.integral += err * dt
	if p.IntegralLimit > 0 {
		p.integral = math.Max(-p.IntegralLimit, math.Min(p.IntegralLimit, p.integral))
	}
	derivative := (err - p.prevErr) / dt
	p.prevErr = err

	return p.Kp*err + p.Ki*p.integral + p.Kd*derivative
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParameter, name)
	}
	return nil
}

var _ dynamo.Configurable = (*PID)(nil)
