package pilot

import (
	"math"
	"testing"
)

func TestCommandVector(t *testing.T) {
	c := Command{TauX: 1, TauY: 2, TauZ: 3, Fz: 4}
	if got := CommandFromVector(c.Vector()); got != c {
		t.Errorf("expected %+v, got %+v", c, got)
	}
	if got := CommandFromVector([]float64{1}); got != (Command{}) {
		t.Errorf("expected zero command for short vector, got %+v", got)
	}
}

func TestCommandIsFinite(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want bool
	}{
		{"zero", Command{}, true},
		{"nan", Command{Fz: math.NaN()}, false},
		{"inf", Command{TauY: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		if got := tt.cmd.IsFinite(); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestColorHex(t *testing.T) {
	if got := (Color{1, 0, 0.5}).Hex(); got != "#ff0080" {
		t.Errorf("expected #ff0080, got %s", got)
	}
	if DefaultColor(0) != DefaultColor(len(palette)) {
		t.Error("expected palette to wrap")
	}
}
