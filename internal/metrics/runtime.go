package metrics

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// RunTime is the mean controller run time in milliseconds.
type RunTime struct {
	sum     time.Duration
	samples int
}

func NewRunTime() *RunTime { return &RunTime{} }

func (r *RunTime) Name() string { return "run_time_ms" }

func (r *RunTime) Observe(s Sample) {
	r.sum += s.RunTime
	r.samples++
}

func (r *RunTime) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return float64(r.sum) / float64(r.samples) / float64(time.Millisecond)
}

func (r *RunTime) Reset() {
	r.sum = 0
	r.samples = 0
}

// PeakRunTime is the slowest controller call seen, in milliseconds.
type PeakRunTime struct {
	times []float64
}

func NewPeakRunTime() *PeakRunTime { return &PeakRunTime{} }

func (p *PeakRunTime) Name() string { return "peak_run_time_ms" }

func (p *PeakRunTime) Observe(s Sample) {
	p.times = append(p.times, float64(s.RunTime)/float64(time.Millisecond))
}

func (p *PeakRunTime) Value() float64 {
	if len(p.times) == 0 {
		return 0
	}
	return floats.Max(p.times)
}

func (p *PeakRunTime) Reset() { p.times = p.times[:0] }
