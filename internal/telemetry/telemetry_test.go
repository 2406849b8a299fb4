package telemetry

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestAppendWidth(t *testing.T) {
	l := NewLog()
	if err := l.Append("a", 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Append("a", 1); !errors.Is(err, ErrWidth) {
		t.Errorf("expected ErrWidth, got %v", err)
	}
	if err := l.Append("b"); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if c := l.Column("a"); c.Rows() != 1 {
		t.Errorf("expected 1 row, got %d", c.Rows())
	}
}

func TestAppendRecord(t *testing.T) {
	l := NewLog()
	for i := 0; i < 3; i++ {
		err := l.AppendRecord(Record{
			Time:      float64(i) * 0.04,
			Position:  r3.Vec{X: float64(i), Y: 2, Z: 3},
			Actuators: []float64{1, 2, 3, 4},
			Gate:      1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if l.Len() != 3 {
		t.Errorf("expected 3 ticks, got %d", l.Len())
	}
	for _, k := range ReservedKeys() {
		if l.Column(k) == nil {
			t.Errorf("expected column %q", k)
		}
	}
	if w := l.Column(KeyMarkers).Width; w != 6 {
		t.Errorf("expected marker width 6, got %d", w)
	}
	if p := l.Position(2); p.X != 2 || p.Z != 3 {
		t.Errorf("expected position (2,2,3), got %v", p)
	}
	if tail := l.Tail("p_x", 2); len(tail) != 2 || tail[1] != 2 {
		t.Errorf("expected tail [1 2], got %v", tail)
	}
}

func TestReserved(t *testing.T) {
	if !Reserved("p_x") || !Reserved("run_time") {
		t.Error("expected built-in keys to be reserved")
	}
	if Reserved("my_error") {
		t.Error("expected my_error to be free")
	}
}

func TestWriteCSV(t *testing.T) {
	l := NewLog()
	l.Append("t", 0)
	l.Append("v", 1, 2)
	l.Append("t", 0.5)
	l.Append("v", 3, 4)
	l.Append("x", 9)

	var buf bytes.Buffer
	if err := l.WriteCSV(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "t,v[0],v[1],x" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != "0.5,3,4," {
		t.Errorf("expected padded row, got %q", lines[2])
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	l := NewLog()
	l.Append("t", 0)
	l.Append("t", 0.04)
	l.Append("err", math.NaN())
	l.Append("err", 1.5)

	a := &Archive{Dt: 0.04}
	a.Add("alice", l)

	var buf bytes.Buffer
	if err := a.Encode(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := DecodeArchive(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, ok := got.Log("alice")
	if !ok {
		t.Fatal("expected alice in archive")
	}
	if back.Len() != 2 {
		t.Errorf("expected 2 ticks, got %d", back.Len())
	}
	errs, _ := back.Scalar("err")
	if !math.IsNaN(errs[0]) || errs[1] != 1.5 {
		t.Errorf("expected [NaN 1.5], got %v", errs)
	}
	if _, ok := got.Log("bob"); ok {
		t.Error("expected bob to be missing")
	}
}
