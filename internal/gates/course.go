package gates

import (
	"math"
	"math/rand"
)

// RaceLength is the number of gates RaceCourse lays out.
const RaceLength = 16

type CourseParams struct {
	RingRadius    float64 `yaml:"ring_radius"`
	RingWidth     float64 `yaml:"ring_width"`
	BigRingRadius float64 `yaml:"big_ring_radius"`
	BigRingWidth  float64 `yaml:"big_ring_width"`
	MinHeight     float64 `yaml:"min_height"`
	MaxHeight     float64 `yaml:"max_height"`
}

func DefaultCourseParams() CourseParams {
	return CourseParams{
		RingRadius:    1.0,
		RingWidth:     0.25,
		BigRingRadius: 2.5,
		BigRingWidth:  0.5,
		MinHeight:     2.0,
		MaxHeight:     6.0,
	}
}

func (p CourseParams) SepBig() float64   { return 4 * p.RingRadius }
func (p CourseParams) SepSmall() float64 { return 0.1 + 2*p.RingRadius }

// Length is the x extent of the course, start ring edge to the far slalom.
func (p CourseParams) Length() float64 {
	return p.BigRingRadius + p.SepBig() + 6*p.SepSmall()
}

// CenterX is the x coordinate around which the arena is laid out.
func (p CourseParams) CenterX() float64 {
	return p.Length()/2 - p.BigRingRadius
}

// heights draws five distinct ring heights from a half-meter grid.
func (p CourseParams) heights(rng *rand.Rand) []float64 {
	n := 2*int(p.MaxHeight-p.MinHeight) + 1
	if n < 5 {
		n = 5
	}
	options := make([]float64, n)
	for i := range options {
		options[i] = p.MinHeight + float64(i)*(p.MaxHeight-p.MinHeight)/float64(n-1)
	}
	perm := rng.Perm(n)
	z := make([]float64, 5)
	for i := range z {
		z[i] = options[perm[i]]
	}
	return z
}

// RaceCourse lays out the standard race: a start ring lying flat at the
// origin, a slalom out along +x, a turn, the slalom back, and a finish ring
// lying flat behind the start.
func RaceCourse(rng *rand.Rand, p CourseParams) Course {
	z := p.heights(rng)
	sepBig, sepSmall := p.SepBig(), p.SepSmall()
	ring := func(x, y, h, yaw float64) GateSpec {
		return GateSpec{
			Position: [3]float64{x, y, h},
			RPY:      [3]float64{0, 0, yaw},
			Radius:   p.RingRadius,
			Width:    p.RingWidth,
		}
	}
	slalomYaw := func(i int) float64 {
		return math.Pow(-1, float64(i+1)) * math.Pi / 2
	}

	specs := []GateSpec{{
		Position: [3]float64{0, 0, p.BigRingWidth / 2},
		RPY:      [3]float64{0, -math.Pi / 2, 0},
		Radius:   p.BigRingRadius,
		Width:    p.BigRingWidth,
	}}

	x := sepBig
	specs = append(specs, ring(x, sepBig, z[0], 0))
	for i := 0; i < 5; i++ {
		x += sepSmall
		specs = append(specs, ring(x, 0, z[1], slalomYaw(i)))
	}
	x += sepSmall
	specs = append(specs, ring(x, -sepBig, z[2], 0))
	specs = append(specs, ring(x, sepBig, z[3], math.Pi))
	for i := 4; i >= 0; i-- {
		x -= sepSmall
		specs = append(specs, ring(x, 0, z[1], slalomYaw(i)))
	}
	x -= sepSmall
	specs = append(specs, ring(x, -sepBig, z[4], math.Pi))

	x -= sepBig
	specs = append(specs, GateSpec{
		Position: [3]float64{x, 0, p.BigRingWidth / 2},
		RPY:      [3]float64{0, math.Pi / 2, 0},
		Radius:   p.BigRingRadius,
		Width:    p.BigRingWidth,
	})

	c := make(Course, len(specs))
	for i, s := range specs {
		c[i] = newGate(i, s)
	}
	return c
}
