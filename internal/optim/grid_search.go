package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrNoTrial = errors.New("optim: no trial produced a finite score")

// Objective scores one parameter set; lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type Result struct {
	Best   map[string]float64
	Score  float64
	Trials []Trial
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates every grid point in order. A failing trial is recorded
// and skipped; only a cancelled context stops the search early.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (*Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	res := &Result{Score: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, res); err != nil {
		return res, err
	}
	if res.Best == nil {
		return res, ErrNoTrial
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	res *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		val, err := objective(ctx, current)
		res.Trials = append(res.Trials, Trial{Params: current, Score: val, Err: err})
		if err != nil {
			return nil
		}
		if val < res.Score {
			res.Score = val
			res.Best = make(map[string]float64)
			for k, v := range current {
				res.Best[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, res); err != nil {
			return err
		}
	}
	return nil
}
