package config

import (
	"sort"
	"time"
)

var presets = map[string]func(*Config){
	"practice": func(c *Config) {
		c.MaxTime = 120
		c.Rules = RulesConfig{}
		c.Roster = []Entry{{Name: "hover", Pilot: "hover"}}
	},
	"race": func(c *Config) {
		c.Roster = []Entry{
			{Name: "hover", Pilot: "hover"},
			{Name: "high", Pilot: "hover", Params: map[string]float64{"altitude": 3}},
			{Name: "drift", Pilot: "drift"},
			{Name: "idle", Pilot: "idle"},
		}
	},
	"strict": func(c *Config) {
		c.Budgets.Run = 5 * time.Millisecond
		c.Budgets.MaxRunViolations = 1
		c.Noise.Measurement = 0.02
	},
	"solo": func(c *Config) {
		c.Placement.MaxAgents = 1
		c.Noise = NoiseConfig{}
		c.Roster = []Entry{{Name: "solo", Pilot: "hover"}}
	},
	"misbehave": func(c *Config) {
		c.MaxTime = 10
		c.Roster = []Entry{
			{Name: "steady", Pilot: "hover"},
			{Name: "chatty", Pilot: "chatty"},
			{Name: "sluggish", Pilot: "sluggish"},
			{Name: "crashy", Pilot: "crashy"},
			{Name: "broken", Pilot: "broken"},
			{Name: "noisy", Pilot: "noisy"},
		}
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
