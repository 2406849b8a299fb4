package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/flightlab/internal/automation"
)

var (
	tuneParams    []string
	tuneObjective string
)

var tuneCmd = &cobra.Command{
	Use:   "tune [pilot]",
	Short: "grid-search a pilot's parameters",
	Long: `Fly the pilot alone once per grid point and report the best parameters.

The episode is chosen as for run (--episode, --preset). The objective is
"time" (finish time, then gates left) or the name of a metric.`,
	Example: `  flightlab tune hover --param altitude=1,1.5,2 --preset solo --time 20`,
	Args:    cobra.ExactArgs(1),
	RunE:    tunePilot,
}

func init() {
	tuneCmd.Flags().StringVar(&episodeFile, "episode", "", "episode config file (yaml)")
	tuneCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration (default solo)")
	tuneCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides config)")
	tuneCmd.Flags().Float64Var(&maxTime, "time", 0, "max episode time in seconds (overrides config)")
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "grid axis name=v1,v2,..., repeatable")
	tuneCmd.Flags().StringVar(&tuneObjective, "objective", "time", "time or a metric name")
	rootCmd.AddCommand(tuneCmd)
}

func parseGrid(specs []string) ([]string, [][]float64, error) {
	var names []string
	var values [][]float64
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid axis %q, want name=v1,v2", spec)
		}
		var axis []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid axis %s: %w", name, err)
			}
			axis = append(axis, v)
		}
		names = append(names, name)
		values = append(values, axis)
	}
	return names, values, nil
}

func tunePilot(cmd *cobra.Command, args []string) error {
	names, values, err := parseGrid(tuneParams)
	if err != nil {
		return err
	}
	if episodeFile == "" && preset == "" {
		preset = "solo"
	}
	cfg, _, err := loadEpisode(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := automation.NewRunner()
	runner.Logger = logger
	res, err := runner.Tune(ctx, automation.Tuning{
		Base:      cfg,
		Pilot:     args[0],
		Params:    names,
		Values:    values,
		Objective: tuneObjective,
	})
	if res != nil {
		t := newTable(append(append([]string{}, names...), "SCORE", "ERROR")...)
		for _, trial := range res.Trials {
			row := make([]string, 0, len(names)+2)
			for _, n := range names {
				row = append(row, strconv.FormatFloat(trial.Params[n], 'g', -1, 64))
			}
			msg := ""
			if trial.Err != nil {
				msg = trial.Err.Error()
			}
			row = append(row, strconv.FormatFloat(trial.Score, 'f', 3, 64), msg)
			t.Row(row...)
		}
		fmt.Println(t.String())
	}
	if err != nil {
		return err
	}

	best := make([]string, 0, len(res.Best))
	for k, v := range res.Best {
		best = append(best, fmt.Sprintf("%s=%g", k, v))
	}
	sort.Strings(best)
	fmt.Printf("best: %s (%s %.3f)\n", colorFinished.Sprint(strings.Join(best, " ")), tuneObjective, res.Score)
	return nil
}
