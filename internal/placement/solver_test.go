package placement

import (
	"errors"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestPlaceNonOverlap(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		inner float64
		outer float64
	}{
		{"single", 1, 0.25, 2.5},
		{"few", 3, 0.25, 2.5},
		{"class", 10, 0.25, 2.5},
		{"crowd", 15, 0.25, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSolver(tt.inner, tt.outer)
			for seed := int64(1); seed <= 10; seed++ {
				pts, err := s.Place(rand.New(rand.NewSource(seed)), tt.n)
				if err != nil {
					t.Fatalf("seed %d: unexpected error: %v", seed, err)
				}
				if len(pts) != tt.n {
					t.Fatalf("expected %d points, got %d", tt.n, len(pts))
				}
				for i := range pts {
					if r := r2.Norm(pts[i]); r > tt.outer {
						t.Errorf("seed %d: point %d at radius %f", seed, i, r)
					}
					for j := i + 1; j < len(pts); j++ {
						if d := r2.Norm(r2.Sub(pts[i], pts[j])); d < 2*tt.inner {
							t.Errorf("seed %d: points %d,%d only %f apart", seed, i, j, d)
						}
					}
				}
			}
		})
	}
}

func TestPlaceDeterministic(t *testing.T) {
	s := DefaultSolver(0.25, 2.5)
	a, err := s.Place(rand.New(rand.NewSource(42)), 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := s.Place(rand.New(rand.NewSource(42)), 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("point %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPlaceFails(t *testing.T) {
	s := DefaultSolver(1, 2)
	s.Retries = 3
	pts, err := s.Place(rand.New(rand.NewSource(7)), 30)
	if !errors.Is(err, ErrPlacementFailed) {
		t.Fatalf("expected ErrPlacementFailed, got %v", err)
	}
	if pts != nil {
		t.Errorf("expected no points, got %d", len(pts))
	}
}

func TestPlaceEmpty(t *testing.T) {
	pts, err := DefaultSolver(0.25, 2.5).Place(rand.New(rand.NewSource(1)), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pts) != 0 {
		t.Errorf("expected no points, got %d", len(pts))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		inner float64
		outer float64
	}{
		{"zero inner", 0, 2},
		{"inverted", 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultSolver(tt.inner, tt.outer).Place(rand.New(rand.NewSource(1)), 2)
			if !errors.Is(err, ErrInvalidRadii) {
				t.Errorf("expected ErrInvalidRadii, got %v", err)
			}
		})
	}
}
