package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/physics"
	"github.com/san-kum/flightlab/internal/placement"
)

const (
	DefaultDt        = 0.04
	DefaultMaxTime   = 60.0
	DefaultMaxAgents = 40
	DefaultPilot     = "hover"
)

var ErrInvalid = errors.New("config: invalid")

// Config is one episode: the arena, the rules and the roster.
type Config struct {
	Dt        float64             `yaml:"dt"`
	MaxTime   float64             `yaml:"max_time"`
	Seed      int64               `yaml:"seed"`
	GateStart int                 `yaml:"gate_start"`
	Rules     RulesConfig         `yaml:"rules"`
	Budgets   BudgetsConfig       `yaml:"budgets"`
	Activity  ActivityConfig      `yaml:"activity"`
	Bounds    BoundsConfig        `yaml:"bounds"`
	Placement PlacementConfig     `yaml:"placement"`
	Course    CourseConfig        `yaml:"course"`
	Noise     NoiseConfig         `yaml:"noise"`
	World     physics.WorldConfig `yaml:"world"`
	Quadrotor physics.Quadrotor   `yaml:"quadrotor"`
	Roster    []Entry             `yaml:"roster"`
	Log       LogConfig           `yaml:"log"`
}

type RulesConfig struct {
	ErrorOnPrint   bool `yaml:"error_on_print"`
	ErrorOnTimeout bool `yaml:"error_on_timeout"`
}

type BudgetsConfig struct {
	Construct        time.Duration `yaml:"construct"`
	Reset            time.Duration `yaml:"reset"`
	Run              time.Duration `yaml:"run"`
	MaxRunViolations int           `yaml:"max_run_violations"`
}

// ActivityConfig is the inactivity rule; Window is in seconds.
type ActivityConfig struct {
	Window   float64 `yaml:"window"`
	Distance float64 `yaml:"distance"`
}

// BoundsConfig is the arena box relative to the course center.
type BoundsConfig struct {
	Length  float64 `yaml:"length"`
	Width   float64 `yaml:"width"`
	Floor   float64 `yaml:"floor"`
	Ceiling float64 `yaml:"ceiling"`
}

type PlacementConfig struct {
	Solver       placement.Solver `yaml:",inline"`
	LaunchHeight float64          `yaml:"launch_height"`
	MaxAgents    int              `yaml:"max_agents"`
}

// CourseConfig selects the generated race course or an explicit gate list.
type CourseConfig struct {
	Kind   string             `yaml:"kind"`
	Params gates.CourseParams `yaml:"params"`
	Gates  []gates.GateSpec   `yaml:"gates,omitempty"`
}

type NoiseConfig struct {
	Marker          float64 `yaml:"marker"`
	Attitude        float64 `yaml:"attitude"`
	Velocity        float64 `yaml:"velocity"`
	AngularVelocity float64 `yaml:"angular_velocity"`
	Measurement     float64 `yaml:"measurement"`
}

// Entry puts one pilot on the roster.
type Entry struct {
	Name   string             `yaml:"name"`
	Pilot  string             `yaml:"pilot"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() *Config {
	world := physics.DefaultWorldConfig()
	return &Config{
		Dt:        DefaultDt,
		MaxTime:   DefaultMaxTime,
		GateStart: 1,
		Rules:     RulesConfig{ErrorOnPrint: true, ErrorOnTimeout: true},
		Budgets: BudgetsConfig{
			Construct:        time.Second,
			Reset:            time.Second,
			Run:              10 * time.Millisecond,
			MaxRunViolations: 10,
		},
		Activity: ActivityConfig{Window: 10, Distance: 0.1},
		Bounds:   BoundsConfig{Length: 40, Width: 30, Floor: -5, Ceiling: 20},
		Placement: PlacementConfig{
			Solver:       placement.DefaultSolver(0.25, 2.5),
			LaunchHeight: 0.3,
			MaxAgents:    DefaultMaxAgents,
		},
		Course: CourseConfig{Kind: "race", Params: gates.DefaultCourseParams()},
		Noise: NoiseConfig{
			Marker:          0.005,
			Attitude:        0.05,
			Velocity:        0.05,
			AngularVelocity: 0.05,
			Measurement:     0.01,
		},
		World:     world,
		Quadrotor: *physics.NewQuadrotor(),
		Roster:    []Entry{{Name: "hover", Pilot: DefaultPilot}},
		Log:       LogConfig{Level: "info"},
	}
}

// MaxTicks converts MaxTime to a tick budget; zero means no limit.
func (c *Config) MaxTicks() int {
	if c.MaxTime <= 0 {
		return 0
	}
	return int(c.MaxTime/c.Dt + 0.5)
}

// ActivityTicks is the inactivity window in ticks.
func (c *Config) ActivityTicks() int {
	return 1 + int(c.Activity.Window/c.Dt)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when given, otherwise the first flightlab.yaml
// found, otherwise the defaults. Environment overrides are applied last.
func LoadOrDefault(path string) (*Config, error) {
	var cfg *Config
	if path != "" {
		c, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if cfg == nil {
		for _, p := range []string{"flightlab.yaml", filepath.Join("configs", "flightlab.yaml")} {
			if _, err := os.Stat(p); err == nil {
				c, err := Load(p)
				if err != nil {
					return nil, err
				}
				cfg = c
				break
			}
		}
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := MergeWithEnvironment(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid after environment overrides: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	out.Roster = make([]Entry, len(c.Roster))
	for i, e := range c.Roster {
		out.Roster[i] = e
		if e.Params != nil {
			out.Roster[i].Params = make(map[string]float64, len(e.Params))
			for k, v := range e.Params {
				out.Roster[i].Params[k] = v
			}
		}
	}
	out.Course.Gates = append([]gates.GateSpec(nil), c.Course.Gates...)
	return &out
}
