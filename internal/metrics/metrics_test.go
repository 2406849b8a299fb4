package metrics

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestMetrics(t *testing.T) {
	samples := []Sample{
		{Realized: [4]float64{1, -1, 0, 2}, Position: r3.Vec{}, RunTime: 2 * time.Millisecond},
		{Realized: [4]float64{0, 0, 0, 4}, Saturated: true, Position: r3.Vec{X: 3, Y: 4}, RunTime: 6 * time.Millisecond},
	}
	tests := []struct {
		metric Metric
		want   float64
	}{
		{NewControlEffort(), 4},
		{NewSaturation(), 0.5},
		{NewRunTime(), 4},
		{NewPeakRunTime(), 6},
		{NewPathLength(), 5},
		{NewSpecificEnergy(10), 0},
	}
	for _, tt := range tests {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			for _, s := range samples {
				tt.metric.Observe(s)
			}
			if got := tt.metric.Value(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			tt.metric.Reset()
			if got := tt.metric.Value(); got != 0 {
				t.Errorf("expected 0 after reset, got %v", got)
			}
		})
	}
}

func TestSet(t *testing.T) {
	s := NewSet(Defaults())
	if len(s) != len(Defaults()) {
		t.Fatalf("expected %d metrics, got %d", len(Defaults()), len(s))
	}
	s.Observe(Sample{Saturated: true, Velocity: r3.Vec{Z: 2}})
	v := s.Values()
	if v["saturation"] != 1 {
		t.Errorf("expected saturation 1, got %v", v["saturation"])
	}
	if math.Abs(v["specific_energy"]-2) > 1e-12 {
		t.Errorf("expected specific energy 2, got %v", v["specific_energy"])
	}
	s.Reset()
	if s.Values()["saturation"] != 0 {
		t.Error("expected reset set")
	}
}
