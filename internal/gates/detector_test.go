package gates

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// lineCourse places n unit-radius gates along +x, one every 10 m, all
// facing +x.
func lineCourse(t *testing.T, n int) Course {
	t.Helper()
	specs := make([]GateSpec, n)
	for i := range specs {
		specs[i] = GateSpec{Position: [3]float64{float64(10 * i), 0, 0}, Radius: 1, Width: 0.25}
	}
	c, err := CourseFromSpec(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func newDetector(t *testing.T, c Course, start int) *Detector {
	t.Helper()
	d, err := NewDetector(c, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestForwardBackwardSymmetry(t *testing.T) {
	d := newDetector(t, lineCourse(t, 3), 0)

	d.Reset(r3.Vec{X: -1})
	if tr := d.Advance(1, r3.Vec{X: 1}); tr != Forward {
		t.Fatalf("expected forward, got %v", tr)
	}
	if d.Current() != 1 {
		t.Fatalf("expected index 1, got %d", d.Current())
	}

	if tr := d.Advance(2, r3.Vec{X: -1}); tr != Backward {
		t.Fatalf("expected backward, got %v", tr)
	}
	if d.Current() != 0 {
		t.Errorf("expected index 0, got %d", d.Current())
	}
}

func TestBackwardSkipsForwardCheck(t *testing.T) {
	d := newDetector(t, lineCourse(t, 3), 0)
	d.Reset(r3.Vec{X: -1})
	d.Advance(1, r3.Vec{X: 1})

	// Re-crossing gate 0 backward must not also count as a crossing of gate 0.
	d.Advance(2, r3.Vec{X: -0.5})
	if d.Current() != 0 {
		t.Fatalf("expected index 0, got %d", d.Current())
	}
	if tr := d.Advance(3, r3.Vec{X: 0.5}); tr != Forward || d.Current() != 1 {
		t.Errorf("expected forward to 1, got %v at %d", tr, d.Current())
	}
}

func TestMisses(t *testing.T) {
	tests := []struct {
		name string
		path []r3.Vec
	}{
		{"stays behind", []r3.Vec{{X: -2}, {X: -1}, {X: -0.01}}},
		{"stays ahead", []r3.Vec{{X: 0.5}, {X: 2}, {X: 3}}},
		{"outside radius", []r3.Vec{{X: -1, Y: 1.5}, {X: 1, Y: 1.5}}},
		{"enters from outside", []r3.Vec{{X: -1, Z: 2}, {X: 1, Z: 0}}},
		{"jumps over", []r3.Vec{{X: -1, Z: 3}, {X: 1, Z: -3}}},
		{"lands on plane", []r3.Vec{{X: -1}, {X: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDetector(t, lineCourse(t, 3), 0)
			d.Reset(tt.path[0])
			for i, p := range tt.path[1:] {
				if tr := d.Advance(i+1, p); tr != None {
					t.Errorf("tick %d: expected none, got %v", i+1, tr)
				}
			}
			if d.Current() != 0 {
				t.Errorf("expected index 0, got %d", d.Current())
			}
		})
	}
}

func TestTerminalGateFinish(t *testing.T) {
	c := lineCourse(t, 2)
	d := newDetector(t, c, 0)
	d.Reset(r3.Vec{X: -1})
	d.Advance(1, r3.Vec{X: 1})
	if !d.IsLast() {
		t.Fatal("expected last gate to be current")
	}

	// The previous sample is far away; only the current one matters.
	d.prev = r3.Vec{X: 50, Y: 50}
	if tr := d.Advance(7, r3.Vec{X: 10.1, Y: 0.3}); tr != Finished {
		t.Fatalf("expected finished, got %v", tr)
	}
	if !d.Finished() || d.Current() != d.NumGates() {
		t.Errorf("expected finished at %d, got %d", d.NumGates(), d.Current())
	}
	if d.FinishTick() != 7 {
		t.Errorf("expected finish tick 7, got %d", d.FinishTick())
	}
	if d.Target() != nil {
		t.Error("expected no target once finished")
	}

	if tr := d.Advance(8, r3.Vec{X: 5}); tr != None || d.Current() != 2 {
		t.Errorf("finished detector moved: %v at %d", tr, d.Current())
	}
}

func TestTerminalGateRequiresVolume(t *testing.T) {
	d := newDetector(t, lineCourse(t, 1), 0)
	d.Reset(r3.Vec{X: -5})

	outside := []r3.Vec{{X: 0.2}, {X: 0, Y: 1.1}, {X: -0.2}}
	for i, p := range outside {
		if tr := d.Advance(i+1, p); tr != None {
			t.Errorf("sample %v: expected none, got %v", p, tr)
		}
	}
	if tr := d.Advance(10, r3.Vec{X: 0.1, Z: -0.9}); tr != Finished {
		t.Errorf("expected finished, got %v", tr)
	}
}

func TestBackwardNeverBelowStart(t *testing.T) {
	d := newDetector(t, lineCourse(t, 3), 1)
	d.Reset(r3.Vec{X: 1})

	// Crossing gate 0 backwards is ignored when gate 1 is the first target.
	if tr := d.Advance(1, r3.Vec{X: -1}); tr != None {
		t.Errorf("expected none, got %v", tr)
	}
	if d.Current() != 1 {
		t.Errorf("expected index 1, got %d", d.Current())
	}
}

func TestDetectorIndexBounds(t *testing.T) {
	c := lineCourse(t, 3)
	d := newDetector(t, c, 0)
	d.Reset(r3.Vec{X: -1})

	path := []r3.Vec{{X: 1}, {X: 9}, {X: 11}, {X: 19.5}, {X: 20}}
	for i, p := range path {
		d.Advance(i+1, p)
		if d.Current() < 0 || d.Current() > d.NumGates() {
			t.Fatalf("index %d out of range", d.Current())
		}
	}
	if !d.Finished() {
		t.Errorf("expected finished, index %d", d.Current())
	}
}

func TestNewDetectorErrors(t *testing.T) {
	if _, err := NewDetector(nil, 0); err != ErrEmptyCourse {
		t.Errorf("expected ErrEmptyCourse, got %v", err)
	}
	if _, err := NewDetector(lineCourse(t, 2), 2); err == nil {
		t.Error("expected error for start outside course")
	}
}

func TestRaceCourse(t *testing.T) {
	p := DefaultCourseParams()
	c := RaceCourse(rand.New(rand.NewSource(1)), p)

	if c.Len() != 16 {
		t.Fatalf("expected 16 gates, got %d", c.Len())
	}
	if n := c[0].Normal(); math.Abs(n.Z-1) > 1e-9 {
		t.Errorf("start ring should face up, normal %v", n)
	}
	if c[0].Radius != p.BigRingRadius || c[15].Radius != p.BigRingRadius {
		t.Error("start and finish rings should be big rings")
	}

	seen := map[float64]bool{}
	for _, i := range []int{1, 2, 7, 8, 14} {
		z := c[i].Center().Z
		if z < p.MinHeight || z > p.MaxHeight {
			t.Errorf("gate %d height %f outside [%f, %f]", i, z, p.MinHeight, p.MaxHeight)
		}
		seen[z] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 distinct heights, got %d", len(seen))
	}

	for i, g := range c {
		if g.Index != i {
			t.Errorf("gate %d has index %d", i, g.Index)
		}
	}

	again := RaceCourse(rand.New(rand.NewSource(1)), p)
	for i := range c {
		if c[i].Center() != again[i].Center() {
			t.Fatalf("gate %d differs for the same seed", i)
		}
	}
}

func TestCourseSpecsRoundTrip(t *testing.T) {
	c := RaceCourse(rand.New(rand.NewSource(3)), DefaultCourseParams())
	back, err := CourseFromSpec(c.Specs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	probe := r3.Vec{X: 0.3, Y: -0.2, Z: 0.1}
	for i := range c {
		if r3.Norm(r3.Sub(c[i].Pose.ToWorld(probe), back[i].Pose.ToWorld(probe))) > 1e-9 {
			t.Errorf("gate %d pose changed", i)
		}
	}
}
