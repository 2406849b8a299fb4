package metrics

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sample is what one agent contributes to its metrics on one tick.
type Sample struct {
	Tick      int
	Time      float64
	Requested [4]float64
	Realized  [4]float64
	Saturated bool
	Position  r3.Vec
	Velocity  r3.Vec
	RunTime   time.Duration
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Factory makes a fresh metric for each agent.
type Factory func() Metric

func Defaults() []Factory {
	return []Factory{
		func() Metric { return NewControlEffort() },
		func() Metric { return NewSaturation() },
		func() Metric { return NewRunTime() },
		func() Metric { return NewPeakRunTime() },
		func() Metric { return NewPathLength() },
		func() Metric { return NewSpecificEnergy(0) },
	}
}

// Set is the metrics of one agent, reported in insertion order.
type Set []Metric

func NewSet(factories []Factory) Set {
	s := make(Set, len(factories))
	for i, f := range factories {
		s[i] = f()
	}
	return s
}

func (s Set) Observe(sample Sample) {
	for _, m := range s {
		m.Observe(sample)
	}
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}
