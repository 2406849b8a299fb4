package allocator

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const (
	kF  = 7e-6
	kM  = 1e-7
	arm = 0.175
)

func quadModel() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		0, 0, kF * arm, -kF * arm,
		-kF * arm, kF * arm, 0, 0,
		-kM, -kM, kM, kM,
		kF, kF, kF, kF,
	})
}

func quadAllocator(t *testing.T) *Allocator {
	t.Helper()
	lo, hi := 100.0*100.0, 900.0*900.0
	a, err := FromActuatorModel(quadModel(), []float64{lo, lo, lo, lo}, []float64{hi, hi, hi, hi})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func closeTo(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestAllocateRoundTrip(t *testing.T) {
	alloc := quadAllocator(t)

	tests := []struct {
		name string
		cmd  []float64
	}{
		{"hover", []float64{0, 0, 0, 4.9}},
		{"small torques", []float64{0.01, -0.02, 0.001, 5.5}},
		{"yaw", []float64{0, 0, -0.005, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := alloc.Allocate(tt.cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Saturated {
				t.Fatalf("expected no saturation, actuators %v", out.Actuators)
			}
			for i := range tt.cmd {
				if out.Realized[i] != tt.cmd[i] {
					t.Errorf("axis %d: expected %g, got %g", i, tt.cmd[i], out.Realized[i])
				}
			}
		})
	}
}

func TestAllocateSaturation(t *testing.T) {
	alloc := quadAllocator(t)

	tests := []struct {
		name string
		cmd  []float64
	}{
		{"too much thrust", []float64{0, 0, 0, 100}},
		{"negative thrust", []float64{0, 0, 0, -1}},
		{"huge roll", []float64{5, 0, 0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := alloc.Allocate(tt.cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !out.Saturated {
				t.Fatal("expected saturation")
			}
			for i, v := range out.Actuators {
				if v < alloc.lower[i] || v > alloc.upper[i] {
					t.Errorf("actuator %d out of bounds: %g", i, v)
				}
			}
			again := alloc.Forward(out.Realized)
			for i := range again {
				if !closeTo(again[i], out.Actuators[i], 1e-9) {
					t.Errorf("actuator %d: expected %g, got %g", i, out.Actuators[i], again[i])
				}
			}
		})
	}
}

func TestAllocateThrustCeiling(t *testing.T) {
	alloc := quadAllocator(t)
	out, err := alloc.Allocate([]float64{0, 0, 0, 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 4 * kF * 900 * 900
	if !closeTo(out.Realized[3], want, 1e-9) {
		t.Errorf("expected thrust %g, got %g", want, out.Realized[3])
	}
}

func TestAsymmetricBounds(t *testing.T) {
	alloc, err := New(mat.NewDense(2, 2, []float64{1, 0, 0, 1}), []float64{0, -5}, []float64{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := alloc.Allocate([]float64{-3, -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Realized[0] != 0 || out.Realized[1] != -3 {
		t.Errorf("expected [0 -3], got %v", out.Realized)
	}
}

func TestConstructorErrors(t *testing.T) {
	tests := []struct {
		name  string
		m     *mat.Dense
		lower []float64
		upper []float64
		want  error
	}{
		{"singular", mat.NewDense(2, 2, []float64{1, 2, 2, 4}), []float64{0, 0}, []float64{1, 1}, ErrSingular},
		{"not square", mat.NewDense(2, 3, []float64{1, 0, 0, 0, 1, 0}), []float64{0, 0}, []float64{1, 1}, ErrNotSquare},
		{"inverted bounds", mat.NewDense(1, 1, []float64{1}), []float64{2}, []float64{1}, ErrBounds},
		{"short bounds", mat.NewDense(2, 2, []float64{1, 0, 0, 1}), []float64{0}, []float64{1}, ErrBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.m, tt.lower, tt.upper)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAllocateLengthMismatch(t *testing.T) {
	alloc := quadAllocator(t)
	if _, err := alloc.Allocate([]float64{1, 2}); !errors.Is(err, ErrLength) {
		t.Errorf("expected ErrLength, got %v", err)
	}
}
