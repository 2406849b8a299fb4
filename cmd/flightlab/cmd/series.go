package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/flightlab/internal/automation"
	"github.com/san-kum/flightlab/internal/sim"
)

var seriesCmd = &cobra.Command{
	Use:   "series [file]",
	Short: "fly a series of episodes and rank the pilots",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeries,
}

func init() {
	seriesCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the episodes")
}

func runSeries(cmd *cobra.Command, args []string) error {
	series, err := automation.LoadSeries(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := store()
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	runner := automation.NewRunner()
	runner.Logger = logger
	runner.OnEpisode = func(i, n int, er automation.EpisodeResult) {
		finished := 0
		for _, a := range er.Result.Agents {
			if a.Status == sim.Finished {
				finished++
			}
		}
		fmt.Printf("%s %s: %d/%d finished\n",
			colorDim.Sprintf("[%d/%d]", i+1, n), er.Name, finished, len(er.Result.Agents))
	}

	results, err := runner.Run(ctx, series)
	if err != nil {
		return err
	}

	if !noSave {
		for _, er := range results {
			runID, err := st.Save(series.Name+"/"+er.Name, er.Config, er.Course, er.Result)
			if err != nil {
				return err
			}
			logger.Info("stored episode", "episode", er.Name, "run", runID)
		}
	}

	fmt.Println()
	fmt.Println(leaderboardTable(automation.Leaderboard(results)))
	return nil
}
