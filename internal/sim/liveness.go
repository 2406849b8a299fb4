package sim

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/flightlab/internal/sandbox"
)

// liveness checks inactivity first, then the arena bounds, on the
// positions recorded so far.
func (s *Simulator) liveness(a *Agent) *sandbox.Failure {
	w := s.cfg.Activity.Window
	if a.log.Len() >= w {
		spans := [3]float64{}
		for i, key := range [3]string{"p_x", "p_y", "p_z"} {
			tail := a.log.Tail(key, w)
			spans[i] = floats.Max(tail) - floats.Min(tail)
		}
		if spans[0] < s.cfg.Activity.Distance && spans[1] < s.cfg.Activity.Distance && spans[2] < s.cfg.Activity.Distance {
			return sandbox.NewFailure(sandbox.Inactive, sandbox.StageLiveness,
				"moved less than %.2f m along every axis in the last %d ticks", s.cfg.Activity.Distance, w)
		}
	}
	if !s.cfg.Bounds.Contains(a.last) {
		return sandbox.NewFailure(sandbox.OutOfBounds, sandbox.StageLiveness,
			"left the arena at (%.2f, %.2f, %.2f)", a.last.X, a.last.Y, a.last.Z)
	}
	return nil
}
