package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/flightlab/internal/clock"
	"github.com/san-kum/flightlab/internal/config"
	"github.com/san-kum/flightlab/internal/experiment"
	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/sim"
)

// Series is a scripted sequence of episodes flown by the same roster.
type Series struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Roster      []config.Entry `yaml:"roster"`
	Episodes    []Episode      `yaml:"episodes"`
}

// Episode starts from a preset (or the defaults) and overrides a few
// fields. Repeat flies it again with consecutive seeds.
type Episode struct {
	Name    string         `yaml:"name"`
	Preset  string         `yaml:"preset"`
	Seed    int64          `yaml:"seed"`
	MaxTime float64        `yaml:"max_time"`
	Repeat  int            `yaml:"repeat"`
	Roster  []config.Entry `yaml:"roster"`
}

func LoadSeries(path string) (*Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var series Series
	if err := yaml.Unmarshal(data, &series); err != nil {
		return nil, err
	}
	if len(series.Episodes) == 0 {
		return nil, fmt.Errorf("series %q has no episodes", series.Name)
	}
	return &series, nil
}

// Configs expands the series into one config per flown episode.
func (s *Series) Configs() ([]EpisodeConfig, error) {
	var out []EpisodeConfig
	for i, ep := range s.Episodes {
		base := config.DefaultConfig()
		if ep.Preset != "" {
			base = config.GetPreset(ep.Preset)
			if base == nil {
				return nil, fmt.Errorf("episode %d: unknown preset %s", i+1, ep.Preset)
			}
		}
		if ep.MaxTime > 0 {
			base.MaxTime = ep.MaxTime
		}
		switch {
		case len(ep.Roster) > 0:
			base.Roster = ep.Roster
		case len(s.Roster) > 0:
			base.Roster = s.Roster
		}

		name := ep.Name
		if name == "" {
			name = fmt.Sprintf("episode-%d", i+1)
		}
		repeat := max(ep.Repeat, 1)
		for r := 0; r < repeat; r++ {
			cfg := base.Clone()
			cfg.Seed = ep.Seed + int64(r)
			label := name
			if repeat > 1 {
				label = fmt.Sprintf("%s#%d", name, r+1)
			}
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", label, err)
			}
			out = append(out, EpisodeConfig{Name: label, Config: cfg})
		}
	}
	return out, nil
}

type EpisodeConfig struct {
	Name   string
	Config *config.Config
}

type EpisodeResult struct {
	Name   string
	Seed   int64
	Config *config.Config
	Course gates.Course
	Result *sim.Result
}

// Runner flies a series one episode at a time.
type Runner struct {
	Registry *experiment.Registry
	Logger   *slog.Logger
	Clock    clock.Clock
	// OnEpisode, when set, is called after every episode.
	OnEpisode func(i, n int, r EpisodeResult)
}

func NewRunner() *Runner {
	return &Runner{
		Registry: experiment.NewRegistry(),
		Logger:   slog.New(slog.DiscardHandler),
		Clock:    clock.Real(),
	}
}

func (r *Runner) Run(ctx context.Context, series *Series) ([]EpisodeResult, error) {
	configs, err := series.Configs()
	if err != nil {
		return nil, err
	}

	results := make([]EpisodeResult, 0, len(configs))
	for i, ec := range configs {
		r.Logger.Info("running episode", "series", series.Name, "episode", ec.Name, "n", i+1, "of", len(configs))

		exp := experiment.New(ec.Config)
		exp.SetRegistry(r.Registry)
		exp.SetLogger(r.Logger.With("episode", ec.Name))
		exp.SetClock(r.Clock)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("%s setup: %w", ec.Name, err)
		}

		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s run: %w", ec.Name, err)
		}

		er := EpisodeResult{Name: ec.Name, Seed: ec.Config.Seed, Config: ec.Config, Course: exp.Course(), Result: res}
		results = append(results, er)
		if r.OnEpisode != nil {
			r.OnEpisode(i, len(configs), er)
		}
	}

	return results, nil
}
