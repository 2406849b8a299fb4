package sim

import "fmt"

type EventKind int

const (
	EventGate EventKind = iota
	EventBackward
	EventFinished
	EventFailed
	EventRejected
)

func (k EventKind) String() string {
	switch k {
	case EventGate:
		return "gate"
	case EventBackward:
		return "backward"
	case EventFinished:
		return "finished"
	case EventFailed:
		return "failed"
	default:
		return "rejected"
	}
}

// Event is emitted whenever an agent changes gate or status.
type Event struct {
	Tick   int
	Time   float64
	Agent  string
	Kind   EventKind
	Gate   int
	Detail string
}

func (e Event) String() string {
	s := fmt.Sprintf("[t=%.2f] %s %s", e.Time, e.Agent, e.Kind)
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

type Observer interface {
	OnEvent(e Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
