package sim

import (
	"sort"

	"github.com/san-kum/flightlab/internal/pilot"
	"github.com/san-kum/flightlab/internal/sandbox"
	"github.com/san-kum/flightlab/internal/telemetry"
)

type AgentResult struct {
	Name       string             `json:"name"`
	Status     Status             `json:"status"`
	Failure    sandbox.Kind       `json:"failure"`
	Stage      string             `json:"stage,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Gate       int                `json:"gate"`
	FinishTick int                `json:"finish_tick"`
	FinishTime float64            `json:"finish_time"`
	EndTick    int                `json:"end_tick"`
	Violations int                `json:"violations"`
	Color      pilot.Color        `json:"color"`
	Metrics    map[string]float64 `json:"metrics"`
	Telemetry  *telemetry.Log     `json:"-"`
}

type Result struct {
	Ticks      int           `json:"ticks"`
	Time       float64       `json:"time"`
	Gates      int           `json:"gates"`
	Agents     []AgentResult `json:"agents"`
	Rejections []AgentResult `json:"rejections,omitempty"`
}

// Result summarizes the episode so far, agents in insertion order.
func (s *Simulator) Result() *Result {
	dt := s.engine.Dt()
	r := &Result{Ticks: s.tick, Time: float64(s.tick) * dt, Gates: len(s.course)}
	for _, a := range s.agents {
		ar := AgentResult{
			Name:       a.name,
			Status:     a.status,
			Gate:       a.detector.Current(),
			FinishTick: a.detector.FinishTick(),
			FinishTime: -1,
			EndTick:    a.endTick,
			Violations: a.slot.Violations(),
			Color:      a.color,
			Telemetry:  a.log,
		}
		if a.metrics != nil {
			ar.Metrics = a.metrics.Values()
		}
		if ar.FinishTick >= 0 {
			ar.FinishTime = float64(ar.FinishTick) * dt
		}
		if a.failure != nil {
			ar.Failure = a.failure.Kind
			ar.Stage = a.failure.Stage.String()
			ar.Reason = a.failure.Reason
		}
		r.Agents = append(r.Agents, ar)
	}
	for _, rej := range s.rejections {
		r.Rejections = append(r.Rejections, AgentResult{
			Name:       rej.Name,
			Status:     Failed,
			Failure:    rej.Failure.Kind,
			Stage:      rej.Failure.Stage.String(),
			Reason:     rej.Failure.Reason,
			FinishTick: -1,
			FinishTime: -1,
			EndTick:    -1,
		})
	}
	return r
}

// Standings orders finished agents by finish time, then agents still
// flying by gate progress, then failed agents by how far they got.
// Ties keep insertion order.
func (r *Result) Standings() []AgentResult {
	out := append([]AgentResult(nil), r.Agents...)
	rank := func(s Status) int {
		switch s {
		case Finished:
			return 0
		case Running:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if rank(a.Status) != rank(b.Status) {
			return rank(a.Status) < rank(b.Status)
		}
		if a.Status == Finished {
			return a.FinishTick < b.FinishTick
		}
		return a.Gate > b.Gate
	})
	return out
}

func (r *Result) Agent(name string) (AgentResult, bool) {
	for _, a := range r.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentResult{}, false
}
