package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/flightlab/internal/config"
	"github.com/san-kum/flightlab/internal/experiment"
)

var (
	episodeFile string
	preset      string
	seed        int64
	maxTime     float64
	agents      []string
	verbose     bool
	noSave      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "fly one episode",
	Long: `Fly one episode and store it under the data directory.

The episode comes from --episode, else --preset, else flightlab.yaml in the
working directory, else the defaults. --agent name=pilot replaces the roster.`,
	Example: `  flightlab run --preset race --seed 7
  flightlab run --agent me=hover --agent rival=drift --time 30`,
	RunE: runEpisode,
}

func init() {
	runCmd.Flags().StringVar(&episodeFile, "episode", "", "episode config file (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides config)")
	runCmd.Flags().Float64Var(&maxTime, "time", 0, "max episode time in seconds (overrides config)")
	runCmd.Flags().StringArrayVar(&agents, "agent", nil, "roster entry name=pilot, repeatable")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every gate passage")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
}

func loadEpisode(cmd *cobra.Command) (*config.Config, string, error) {
	label := "default"
	var cfg *config.Config
	switch {
	case episodeFile != "":
		c, err := config.LoadOrDefault(episodeFile)
		if err != nil {
			return nil, "", err
		}
		cfg, label = c, episodeFile
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		if err := config.MergeWithEnvironment(cfg); err != nil {
			return nil, "", err
		}
		label = preset
	default:
		c, err := config.LoadOrDefault("")
		if err != nil {
			return nil, "", err
		}
		cfg = c
	}

	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("time") {
		cfg.MaxTime = maxTime
	}
	if len(agents) > 0 {
		cfg.Roster = nil
		for _, a := range agents {
			name, pilot, ok := strings.Cut(a, "=")
			if !ok {
				name, pilot = a, a
			}
			cfg.Roster = append(cfg.Roster, config.Entry{Name: name, Pilot: pilot})
		}
	}
	return cfg, label, cfg.Validate()
}

// episodeLogger follows the episode's log level unless --log-level was
// given explicitly.
func episodeLogger(cfg *config.Config) *slog.Logger {
	if rootCmd.PersistentFlags().Changed("log-level") || cfg.Log.Level == "" {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
}

func runEpisode(cmd *cobra.Command, args []string) error {
	cfg, label, err := loadEpisode(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg)
	exp.SetLogger(episodeLogger(cfg))
	exp.AddObserver(&reporter{w: os.Stdout, verbose: verbose})
	if err := exp.Setup(); err != nil {
		return err
	}

	fmt.Printf("flying %d agents over %d gates (seed %d)\n",
		len(exp.Simulator().Agents()), len(exp.Course()), cfg.Seed)
	start := time.Now()

	res, err := exp.Run(ctx)
	if err != nil && res == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "episode stopped early: %v\n", err)
	}

	fmt.Printf("\n%d ticks (%.2fs simulated) in %v\n", res.Ticks, res.Time, time.Since(start).Round(time.Millisecond))
	fmt.Println(standingsTable(res))

	if noSave {
		return nil
	}
	st := store()
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(label, cfg, exp.Course(), res)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}
