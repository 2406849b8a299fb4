package control

import (
	"github.com/san-kum/flightlab/internal/pilot"
)

// Fixed sends the same command every tick.
type Fixed struct {
	Command pilot.Command
}

func NewFixed(cmd pilot.Command) *Fixed {
	return &Fixed{Command: cmd}
}

// SetCommand replaces the command sent from the next tick on.
func (f *Fixed) SetCommand(cmd pilot.Command) {
	f.Command = cmd
}

func (f *Fixed) Reset(pilot.Initial) error { return nil }

func (f *Fixed) Run(pilot.Sensors) (pilot.Command, error) {
	return f.Command, nil
}

// NewIdle never spins up: the quadrotor drops to the floor and sits there.
func NewIdle() *Fixed {
	return NewFixed(pilot.Command{})
}

// NewDrift climbs gently on slightly more than hover thrust until it
// leaves the arena.
func NewDrift(mass float64) *Fixed {
	return NewFixed(pilot.Command{Fz: 1.1 * mass * gravity})
}
