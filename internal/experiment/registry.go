package experiment

import (
	"fmt"
	"sort"
	"time"

	"github.com/san-kum/flightlab/internal/clock"
	"github.com/san-kum/flightlab/internal/control"
	"github.com/san-kum/flightlab/internal/physics"
	"github.com/san-kum/flightlab/internal/pilot"
)

// Env is what a pilot builder may know about the arena.
type Env struct {
	Mass  float64
	Dt    float64
	Clock clock.Clock
}

// Pilot describes a registered pilot: its tunable parameters with their
// defaults and how to build a factory from them.
type Pilot struct {
	Name        string
	Description string
	Defaults    map[string]float64
	Build       func(env Env, params map[string]float64) pilot.Factory
}

type Registry struct {
	pilots map[string]Pilot
}

func NewRegistry() *Registry {
	r := &Registry{pilots: make(map[string]Pilot)}

	r.mustRegister(Pilot{
		Name:        "hover",
		Description: "holds altitude and heading from the two markers",
		Defaults:    map[string]float64{"altitude": 1.5},
		Build: func(env Env, p map[string]float64) pilot.Factory {
			return func() (pilot.Controller, error) {
				return control.NewHover(p["altitude"], env.Mass, env.Dt), nil
			}
		},
	})
	r.mustRegister(Pilot{
		Name:        "idle",
		Description: "never spins up",
		Build: func(Env, map[string]float64) pilot.Factory {
			return func() (pilot.Controller, error) { return control.NewIdle(), nil }
		},
	})
	r.mustRegister(Pilot{
		Name:        "drift",
		Description: "constant thrust slightly above hover",
		Defaults:    map[string]float64{"thrust_ratio": 1.1},
		Build: func(env Env, p map[string]float64) pilot.Factory {
			fz := p["thrust_ratio"] * env.Mass * physics.DefaultGravity
			return func() (pilot.Controller, error) {
				return control.NewFixed(pilot.Command{Fz: fz}), nil
			}
		},
	})
	r.mustRegister(Pilot{
		Name:        "chatty",
		Description: "prints to stdout",
		Defaults:    map[string]float64{"after": 5},
		Build: func(_ Env, p map[string]float64) pilot.Factory {
			return func() (pilot.Controller, error) {
				return &control.Chatty{After: int(p["after"])}, nil
			}
		},
	})
	r.mustRegister(Pilot{
		Name:        "sluggish",
		Description: "sleeps past the run budget every tick",
		Defaults:    map[string]float64{"delay_ms": 20},
		Build: func(env Env, p map[string]float64) pilot.Factory {
			delay := time.Duration(p["delay_ms"] * float64(time.Millisecond))
			return func() (pilot.Controller, error) {
				return &control.Sluggish{Delay: delay, Clock: env.Clock}, nil
			}
		},
	})
	r.mustRegister(Pilot{
		Name:        "crashy",
		Description: "panics",
		Defaults:    map[string]float64{"after": 5},
		Build: func(_ Env, p map[string]float64) pilot.Factory {
			return func() (pilot.Controller, error) {
				return &control.Crashy{After: int(p["after"])}, nil
			}
		},
	})
	r.mustRegister(Pilot{
		Name:        "broken",
		Description: "fails to construct",
		Build: func(Env, map[string]float64) pilot.Factory {
			return control.NewBroken
		},
	})
	r.mustRegister(Pilot{
		Name:        "noisy",
		Description: "asks to log a reserved column",
		Build: func(Env, map[string]float64) pilot.Factory {
			return func() (pilot.Controller, error) { return &control.Noisy{}, nil }
		},
	})

	return r
}

func (r *Registry) Register(p Pilot) error {
	if p.Name == "" || p.Build == nil {
		return fmt.Errorf("pilot needs a name and a builder")
	}
	if _, ok := r.pilots[p.Name]; ok {
		return fmt.Errorf("pilot already registered: %s", p.Name)
	}
	r.pilots[p.Name] = p
	return nil
}

func (r *Registry) mustRegister(p Pilot) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Factory resolves name and merges params over the pilot's defaults.
// Parameters the pilot does not declare are an error.
func (r *Registry) Factory(name string, env Env, params map[string]float64) (pilot.Factory, error) {
	p, ok := r.pilots[name]
	if !ok {
		return nil, fmt.Errorf("unknown pilot: %s", name)
	}
	merged := make(map[string]float64, len(p.Defaults))
	for k, v := range p.Defaults {
		merged[k] = v
	}
	for k, v := range params {
		if _, ok := p.Defaults[k]; !ok {
			return nil, fmt.Errorf("pilot %s has no parameter %s", name, k)
		}
		merged[k] = v
	}
	if env.Clock == nil {
		env.Clock = clock.Real()
	}
	return p.Build(env, merged), nil
}

func (r *Registry) Get(name string) (Pilot, bool) {
	p, ok := r.pilots[name]
	return p, ok
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.pilots))
	for name := range r.pilots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
