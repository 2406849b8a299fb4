package sim

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/metrics"
	"github.com/san-kum/flightlab/internal/physics"
	"github.com/san-kum/flightlab/internal/pilot"
	"github.com/san-kum/flightlab/internal/sandbox"
	"github.com/san-kum/flightlab/internal/telemetry"
)

type Status int

const (
	Running Status = iota
	Finished
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "failed"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running":
		*s = Running
	case "finished":
		*s = Finished
	case "failed":
		*s = Failed
	default:
		return fmt.Errorf("sim: unknown status %q", b)
	}
	return nil
}

// Agent is one controller in the arena together with everything the
// scheduler tracks for it. Agents never see each other's state.
type Agent struct {
	name     string
	index    int
	slot     *sandbox.Slot
	color    pilot.Color
	body     physics.Handle
	hasBody  bool
	detector *gates.Detector
	status   Status
	failure  *sandbox.Failure
	endTick  int
	log      *telemetry.Log
	metrics  metrics.Set
	last     r3.Vec
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) Index() int { return a.index }

func (a *Agent) Status() Status { return a.status }

// Failure is nil unless the agent failed.
func (a *Agent) Failure() *sandbox.Failure { return a.failure }

func (a *Agent) Gate() int { return a.detector.Current() }

func (a *Agent) FinishTick() int { return a.detector.FinishTick() }

// EndTick is the tick on which the agent finished or failed, or -1.
func (a *Agent) EndTick() int { return a.endTick }

func (a *Agent) Color() pilot.Color { return a.color }

func (a *Agent) Log() *telemetry.Log { return a.log }

func (a *Agent) Metrics() map[string]float64 { return a.metrics.Values() }

func (a *Agent) Violations() int { return a.slot.Violations() }

// Position is the last position the scheduler read for the agent.
func (a *Agent) Position() r3.Vec { return a.last }

func (a *Agent) Controller() pilot.Controller { return a.slot.Controller() }

// Rejection records an agent whose controller could not be constructed.
type Rejection struct {
	Name    string
	Failure *sandbox.Failure
}
