package automation

import (
	"sort"

	"github.com/san-kum/flightlab/internal/sim"
)

// Standing aggregates one pilot over a series.
type Standing struct {
	Name     string         `json:"name"`
	Episodes int            `json:"episodes"`
	Finishes int            `json:"finishes"`
	BestTime float64        `json:"best_time"`
	MeanTime float64        `json:"mean_time"`
	Gates    int            `json:"gates"`
	Failures map[string]int `json:"failures,omitempty"`
}

// Leaderboard ranks pilots by finishes, then best time, then total gates
// passed. BestTime and MeanTime are -1 for a pilot that never finished.
func Leaderboard(results []EpisodeResult) []Standing {
	byName := make(map[string]*Standing)
	var order []string
	get := func(name string) *Standing {
		st, ok := byName[name]
		if !ok {
			st = &Standing{Name: name, BestTime: -1, MeanTime: -1, Failures: map[string]int{}}
			byName[name] = st
			order = append(order, name)
		}
		return st
	}

	sums := make(map[string]float64)
	for _, er := range results {
		for _, a := range er.Result.Agents {
			st := get(a.Name)
			st.Episodes++
			st.Gates += a.Gate
			switch a.Status {
			case sim.Finished:
				st.Finishes++
				sums[a.Name] += a.FinishTime
				if st.BestTime < 0 || a.FinishTime < st.BestTime {
					st.BestTime = a.FinishTime
				}
			case sim.Failed:
				st.Failures[a.Failure.String()]++
			}
		}
		for _, a := range er.Result.Rejections {
			st := get(a.Name)
			st.Episodes++
			st.Failures[a.Failure.String()]++
		}
	}

	out := make([]Standing, 0, len(order))
	for _, name := range order {
		st := byName[name]
		if st.Finishes > 0 {
			st.MeanTime = sums[name] / float64(st.Finishes)
		}
		out = append(out, *st)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Finishes != b.Finishes {
			return a.Finishes > b.Finishes
		}
		if a.Finishes > 0 && a.BestTime != b.BestTime {
			return a.BestTime < b.BestTime
		}
		return a.Gates > b.Gates
	})
	return out
}
