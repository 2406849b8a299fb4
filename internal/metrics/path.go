package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// PathLength is the distance flown, summed over tick-to-tick displacements.
type PathLength struct {
	last   r3.Vec
	seen   bool
	length float64
}

func NewPathLength() *PathLength { return &PathLength{} }

func (p *PathLength) Name() string { return "path_length" }

func (p *PathLength) Observe(s Sample) {
	if p.seen {
		p.length += r3.Norm(r3.Sub(s.Position, p.last))
	}
	p.last = s.Position
	p.seen = true
}

func (p *PathLength) Value() float64 { return p.length }

func (p *PathLength) Reset() {
	p.length = 0
	p.seen = false
}

// SpecificEnergy is the mean mechanical energy per unit mass,
// |v|^2/2 + g*z.
type SpecificEnergy struct {
	gravity float64
	total   float64
	samples int
}

// NewSpecificEnergy uses standard gravity when g is zero.
func NewSpecificEnergy(g float64) *SpecificEnergy {
	if g == 0 {
		g = 9.81
	}
	return &SpecificEnergy{gravity: g}
}

func (e *SpecificEnergy) Name() string { return "specific_energy" }

func (e *SpecificEnergy) Observe(s Sample) {
	v := s.Velocity
	e.total += 0.5*r3.Dot(v, v) + e.gravity*s.Position.Z
	e.samples++
}

func (e *SpecificEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *SpecificEnergy) Reset() {
	e.total = 0
	e.samples = 0
}
