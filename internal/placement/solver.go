package placement

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrNotConverged    = errors.New("placement: relaxation did not separate points")
	ErrPlacementFailed = errors.New("placement: retry budget exhausted")
	ErrInvalidRadii    = errors.New("placement: inner radius must be positive and below outer radius")
)

// minClearance keeps the repulsive potential finite for coincident points
// and points that drifted onto or past the boundary.
const minClearance = 1e-6

// Solver spreads points in a disk by descending a repulsive potential.
type Solver struct {
	Inner      float64 `yaml:"inner_radius"`
	Outer      float64 `yaml:"outer_radius"`
	Iterations int     `yaml:"iterations"`
	Retries    int     `yaml:"retries"`
	Krep       float64 `yaml:"krep"`
	Kdes       float64 `yaml:"kdes"`
	MaxStep    float64 `yaml:"max_step"`
}

func DefaultSolver(inner, outer float64) Solver {
	return Solver{
		Inner:      inner,
		Outer:      outer,
		Iterations: 50,
		Retries:    20,
		Krep:       1,
		Kdes:       0.5,
		MaxStep:    0.1,
	}
}

// Range is the distance below which two points (or a point and the
// boundary) repel.
func (s Solver) Range() float64 { return 4 * s.Inner }

func (s Solver) Validate() error {
	if s.Inner <= 0 || s.Outer <= s.Inner {
		return fmt.Errorf("%w: inner %g, outer %g", ErrInvalidRadii, s.Inner, s.Outer)
	}
	if s.Iterations < 0 || s.Retries < 1 || s.MaxStep <= 0 {
		return fmt.Errorf("placement: iterations, retries and max_step must be positive")
	}
	return nil
}

// Place returns n points with pairwise distance and boundary clearance
// above 2*Inner, retrying with fresh samples. It never returns points that
// violate the separation.
func (s Solver) Place(rng *rand.Rand, n int) ([]r2.Vec, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for attempt := 0; attempt < s.Retries; attempt++ {
		p, err := s.Attempt(rng, n)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotConverged) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %d agents after %d attempts", ErrPlacementFailed, n, s.Retries)
}

func (s Solver) Attempt(rng *rand.Rand, n int) ([]r2.Vec, error) {
	if n == 0 {
		return []r2.Vec{}, nil
	}

	p := make([]r2.Vec, n)
	for i := range p {
		r := s.Outer * math.Sqrt(rng.Float64())
		th := 2 * math.Pi * rng.Float64()
		p[i] = r2.Vec{X: r * math.Cos(th), Y: r * math.Sin(th)}
	}

	step := make([]r2.Vec, n)
	for it := 0; it < s.Iterations; it++ {
		for i := range p {
			step[i] = r2.Scale(-s.Kdes, s.gradient(p, i))
		}
		for i := range p {
			p[i] = r2.Add(p[i], step[i])
		}
	}

	if d := s.clearance(p); !(d > 2*s.Inner) {
		return nil, fmt.Errorf("%w: clearance %.3f", ErrNotConverged, d)
	}
	return p, nil
}

// gradient of the repulsive potential at p[i], capped at MaxStep.
func (s Solver) gradient(p []r2.Vec, i int) r2.Vec {
	brep := s.Range()
	var g r2.Vec
	push := func(d float64, dir r2.Vec) {
		if d > brep {
			return
		}
		d = math.Max(d, minClearance)
		g = r2.Add(g, r2.Scale(s.Krep*(1/brep-1/d)/(d*d), dir))
	}

	for j := range p {
		if j == i {
			continue
		}
		v := r2.Sub(p[i], p[j])
		d := r2.Norm(v)
		if d == 0 {
			continue
		}
		push(d, r2.Scale(1/d, v))
	}

	if r := r2.Norm(p[i]); r > 0 {
		push(s.Outer-r, r2.Scale(-1/r, p[i]))
	}

	if n := r2.Norm(g); n >= s.MaxStep {
		g = r2.Scale(s.MaxStep/n, g)
	}
	return g
}

// clearance is the smallest pairwise distance or distance to the boundary.
func (s Solver) clearance(p []r2.Vec) float64 {
	dmin := math.Inf(1)
	for i := range p {
		dmin = math.Min(dmin, s.Outer-r2.Norm(p[i]))
		for j := i + 1; j < len(p); j++ {
			dmin = math.Min(dmin, r2.Norm(r2.Sub(p[i], p[j])))
		}
	}
	return dmin
}
