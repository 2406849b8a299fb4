package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/flightlab/internal/clock"
	"github.com/san-kum/flightlab/internal/pilot"
)

// The pilots in this file break the rules on purpose. They exist to
// demonstrate each failure kind.

var ErrBroken = errors.New("control: broken pilot refuses to start")

// Chatty prints to stdout on tick After.
type Chatty struct {
	Fixed
	After int
	ticks int
}

func (c *Chatty) Reset(pilot.Initial) error {
	c.ticks = 0
	return nil
}

func (c *Chatty) Run(s pilot.Sensors) (pilot.Command, error) {
	if c.ticks == c.After {
		fmt.Println("chatty: are we there yet?")
	}
	c.ticks++
	return c.Fixed.Run(s)
}

// Sluggish sleeps Delay on every tick.
type Sluggish struct {
	Fixed
	Delay time.Duration
	Clock clock.Clock
}

func (s *Sluggish) Run(in pilot.Sensors) (pilot.Command, error) {
	s.Clock.Sleep(s.Delay)
	return s.Fixed.Run(in)
}

// Crashy panics on tick After.
type Crashy struct {
	Fixed
	After int
	ticks int
}

func (c *Crashy) Reset(pilot.Initial) error {
	c.ticks = 0
	return nil
}

func (c *Crashy) Run(s pilot.Sensors) (pilot.Command, error) {
	if c.ticks == c.After {
		var m map[string]int
		m["boom"]++
	}
	c.ticks++
	return c.Fixed.Run(s)
}

// Noisy asks to log a column the scheduler already owns.
type Noisy struct {
	Fixed
}

func (n *Noisy) VariablesToLog() []string { return []string{"p_x"} }

func NewBroken() (pilot.Controller, error) {
	return nil, ErrBroken
}
