package automation

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/flightlab/internal/config"
	"github.com/san-kum/flightlab/internal/experiment"
	"github.com/san-kum/flightlab/internal/optim"
	"github.com/san-kum/flightlab/internal/sim"
)

// Tuning grid-searches one pilot's parameters, flying it alone on the
// base episode for every grid point.
type Tuning struct {
	Base      *config.Config
	Pilot     string
	Params    []string
	Values    [][]float64
	Objective string
}

const tunedAgent = "tuned"

// Score turns an agent result into a cost. The "time" objective ranks
// finishers by finish time and everyone else behind them by gates left;
// any other objective is the named metric. Failed agents cost +Inf.
func Score(a sim.AgentResult, gates int, maxTime float64, objective string) float64 {
	if a.Status == sim.Failed {
		return math.Inf(1)
	}
	if objective == "time" {
		if a.Status == sim.Finished {
			return a.FinishTime
		}
		return maxTime * float64(1+gates-a.Gate)
	}
	v, ok := a.Metrics[objective]
	if !ok {
		return math.Inf(1)
	}
	return v
}

func (r *Runner) Tune(ctx context.Context, t Tuning) (*optim.Result, error) {
	if _, ok := r.Registry.Get(t.Pilot); !ok {
		return nil, fmt.Errorf("unknown pilot: %s", t.Pilot)
	}
	if t.Objective == "" {
		t.Objective = "time"
	}

	search := optim.NewGridSearch(t.Params, t.Values)
	r.Logger.Info("tuning", "pilot", t.Pilot, "points", search.Size(), "objective", t.Objective)

	return search.Search(ctx, func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := t.Base.Clone()
		cfg.Roster = []config.Entry{{Name: tunedAgent, Pilot: t.Pilot, Params: params}}

		exp := experiment.New(cfg)
		exp.SetRegistry(r.Registry)
		exp.SetLogger(r.Logger)
		exp.SetClock(r.Clock)
		if err := exp.Setup(); err != nil {
			return 0, err
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return 0, err
		}
		if len(res.Rejections) > 0 {
			return math.Inf(1), nil
		}
		a, _ := res.Agent(tunedAgent)
		score := Score(a, res.Gates, cfg.MaxTime, t.Objective)
		r.Logger.Debug("trial", "params", params, "score", score)
		return score, nil
	})
}
