package config

import (
	"fmt"
	"strings"

	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/integrators"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// NumGates is the length of the configured course.
func (c *Config) NumGates() int {
	if c.Course.Kind == "custom" {
		return len(c.Course.Gates)
	}
	return gates.RaceLength
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return invalid("dt must be positive, got %g", c.Dt)
	}
	if c.MaxTime < 0 {
		return invalid("max_time must not be negative, got %g", c.MaxTime)
	}
	b := c.Budgets
	if b.Construct <= 0 || b.Reset <= 0 || b.Run <= 0 {
		return invalid("budgets must be positive")
	}
	if b.MaxRunViolations < 1 {
		return invalid("budgets.max_run_violations must be at least 1, got %d", b.MaxRunViolations)
	}
	if c.Activity.Window <= 0 || c.Activity.Distance <= 0 {
		return invalid("activity window and distance must be positive")
	}
	if c.Bounds.Length <= 0 || c.Bounds.Width <= 0 || c.Bounds.Ceiling <= c.Bounds.Floor {
		return invalid("bounds must describe a non-empty box")
	}
	if err := c.Placement.Solver.Validate(); err != nil {
		return invalid("placement: %v", err)
	}
	if c.Placement.MaxAgents < 1 {
		return invalid("placement.max_agents must be at least 1")
	}

	if _, err := integrators.ByName(c.World.Integrator); err != nil {
		return invalid("world: %v", err)
	}
	q := c.Quadrotor
	if q.Mass <= 0 || q.Ixx <= 0 || q.Iyy <= 0 || q.Izz <= 0 || q.ArmLength <= 0 {
		return invalid("quadrotor mass, inertia and arm length must be positive")
	}
	if q.KF <= 0 || q.KM <= 0 || q.SpinMin < 0 || q.SpinMax <= q.SpinMin {
		return invalid("quadrotor motor constants out of range")
	}

	switch c.Course.Kind {
	case "race":
		p := c.Course.Params
		if p.RingRadius <= 0 || p.BigRingRadius <= 0 || p.RingWidth <= 0 || p.BigRingWidth <= 0 {
			return invalid("course ring sizes must be positive")
		}
		if p.MaxHeight <= p.MinHeight {
			return invalid("course max_height must exceed min_height")
		}
	case "custom":
		if len(c.Course.Gates) == 0 {
			return invalid("custom course needs at least one gate")
		}
	default:
		return invalid("unknown course kind %q", c.Course.Kind)
	}
	if c.GateStart < 0 || c.GateStart >= c.NumGates() {
		return invalid("gate_start %d outside course of %d gates", c.GateStart, c.NumGates())
	}

	if len(c.Roster) > c.Placement.MaxAgents {
		return invalid("roster has %d entries, limit is %d", len(c.Roster), c.Placement.MaxAgents)
	}
	seen := make(map[string]bool, len(c.Roster))
	for i, e := range c.Roster {
		if e.Name == "" || e.Pilot == "" {
			return invalid("roster entry %d needs a name and a pilot", i)
		}
		if seen[e.Name] {
			return invalid("roster name %q used twice", e.Name)
		}
		seen[e.Name] = true
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("unknown log level %q", c.Log.Level)
	}
	return nil
}
