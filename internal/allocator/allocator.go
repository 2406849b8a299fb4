package allocator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrSingular  = errors.New("allocator: mixing matrix is not invertible")
	ErrNotSquare = errors.New("allocator: mixing matrix is not square")
	ErrBounds    = errors.New("allocator: invalid actuator bounds")
	ErrLength    = errors.New("allocator: command length does not match mixer")
)

// Allocator maps generalized commands to actuator space through a fixed
// mixing matrix M, clamps there, and maps the clamped vector back through
// M^-1 to obtain the command the hardware can actually realize.
type Allocator struct {
	m     *mat.Dense
	mInv  *mat.Dense
	lower []float64
	upper []float64
	n     int
}

type Allocation struct {
	Realized  []float64
	Actuators []float64
	Saturated bool
}

// New builds an allocator from M (generalized -> actuator).
func New(m *mat.Dense, lower, upper []float64) (*Allocator, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	if len(lower) != r || len(upper) != r {
		return nil, fmt.Errorf("%w: want %d bounds, got %d/%d", ErrBounds, r, len(lower), len(upper))
	}
	for i := range lower {
		if lower[i] > upper[i] || math.IsNaN(lower[i]) || math.IsNaN(upper[i]) {
			return nil, fmt.Errorf("%w: actuator %d has [%g, %g]", ErrBounds, i, lower[i], upper[i])
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	return &Allocator{
		m:     mat.DenseCopyOf(m),
		mInv:  &inv,
		lower: append([]float64(nil), lower...),
		upper: append([]float64(nil), upper...),
		n:     r,
	}, nil
}

// FromActuatorModel builds an allocator from the physical model A = M^-1,
// which maps actuator values to the generalized command they produce.
func FromActuatorModel(a *mat.Dense, lower, upper []float64) (*Allocator, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	var m mat.Dense
	if err := m.Inverse(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return New(&m, lower, upper)
}

func (a *Allocator) Dim() int { return a.n }

// Forward maps a generalized command to raw actuator values.
func (a *Allocator) Forward(cmd []float64) []float64 {
	var out mat.VecDense
	out.MulVec(a.m, mat.NewVecDense(a.n, append([]float64(nil), cmd...)))
	return rawVec(&out)
}

// Backward maps actuator values to the generalized command they produce.
func (a *Allocator) Backward(act []float64) []float64 {
	var out mat.VecDense
	out.MulVec(a.mInv, mat.NewVecDense(a.n, append([]float64(nil), act...)))
	return rawVec(&out)
}

func (a *Allocator) Allocate(desired []float64) (Allocation, error) {
	if len(desired) != a.n {
		return Allocation{}, fmt.Errorf("%w: want %d, got %d", ErrLength, a.n, len(desired))
	}

	act := a.Forward(desired)
	saturated := false
	for i, v := range act {
		c := math.Min(math.Max(v, a.lower[i]), a.upper[i])
		if c != v {
			saturated = true
		}
		act[i] = c
	}

	if !saturated {
		return Allocation{
			Realized:  append([]float64(nil), desired...),
			Actuators: act,
		}, nil
	}

	return Allocation{
		Realized:  a.Backward(act),
		Actuators: act,
		Saturated: true,
	}, nil
}

func rawVec(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
