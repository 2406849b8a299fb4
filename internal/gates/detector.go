package gates

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type Transition int

const (
	None Transition = iota
	Forward
	Backward
	Finished
)

func (t Transition) String() string {
	switch t {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Finished:
		return "finished"
	default:
		return "none"
	}
}

// Detector tracks one agent's progress through a course from consecutive
// position samples. The current index only moves by one per tick.
type Detector struct {
	course     Course
	start      int
	current    int
	prev       r3.Vec
	finishTick int
}

// NewDetector returns a detector whose first target is course[start].
// Gates before start are never targeted or re-crossed.
func NewDetector(course Course, start int) (*Detector, error) {
	if len(course) == 0 {
		return nil, ErrEmptyCourse
	}
	if start < 0 || start >= len(course) {
		return nil, fmt.Errorf("gates: start index %d outside course of %d gates", start, len(course))
	}
	return &Detector{course: course, start: start, current: start, finishTick: -1}, nil
}

func (d *Detector) Reset(pos r3.Vec) {
	d.current = d.start
	d.prev = pos
	d.finishTick = -1
}

func (d *Detector) Advance(tick int, pos r3.Vec) Transition {
	prev := d.prev
	d.prev = pos

	if d.Finished() {
		return None
	}

	if d.current > d.start {
		if d.course[d.current-1].crossedBackward(prev, pos) {
			d.current--
			return Backward
		}
	}

	if d.current+1 == len(d.course) {
		if d.course[d.current].Contains(pos) {
			d.current++
			d.finishTick = tick
			return Finished
		}
		return None
	}

	if d.course[d.current].crossedForward(prev, pos) {
		d.current++
		return Forward
	}
	return None
}

func (d *Detector) Current() int { return d.current }

func (d *Detector) NumGates() int { return len(d.course) }

func (d *Detector) Finished() bool { return d.current == len(d.course) }

// FinishTick is -1 until the terminal gate is reached.
func (d *Detector) FinishTick() int { return d.finishTick }

func (d *Detector) IsLast() bool { return d.current+1 == len(d.course) }

// Target returns the gate the agent is heading for, or nil once finished.
func (d *Detector) Target() *Gate {
	if d.Finished() {
		return nil
	}
	g := d.course[d.current]
	return &g
}
