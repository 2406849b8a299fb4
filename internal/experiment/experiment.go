package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/allocator"
	"github.com/san-kum/flightlab/internal/clock"
	"github.com/san-kum/flightlab/internal/config"
	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/physics"
	"github.com/san-kum/flightlab/internal/sandbox"
	"github.com/san-kum/flightlab/internal/sim"
)

// Experiment turns an episode config into a ready simulator.
type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *slog.Logger
	clock     clock.Clock
	capture   sandbox.Capture
	observers []sim.Observer

	world     *physics.World
	course    gates.Course
	simulator *sim.Simulator
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   slog.New(slog.DiscardHandler),
		clock:    clock.Real(),
	}
}

func (e *Experiment) SetRegistry(r *Registry) { e.registry = r }

func (e *Experiment) SetLogger(l *slog.Logger) { e.logger = l }

func (e *Experiment) SetClock(c clock.Clock) { e.clock = c }

func (e *Experiment) SetCapture(c sandbox.Capture) { e.capture = c }

// AddObserver must be called before Setup to see rejections.
func (e *Experiment) AddObserver(o sim.Observer) { e.observers = append(e.observers, o) }

func (e *Experiment) Config() *config.Config { return e.cfg }

// Setup builds the world, course and simulator, enters the roster and
// resets the episode.
func (e *Experiment) Setup() error {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	worldCfg := cfg.World
	worldCfg.Dt = cfg.Dt
	world, err := physics.NewWorld(worldCfg)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}

	course, err := BuildCourse(cfg)
	if err != nil {
		return fmt.Errorf("course: %w", err)
	}

	q := cfg.Quadrotor
	lower, upper := q.ActuatorBounds()
	alloc, err := allocator.FromActuatorModel(q.ActuatorModel(), lower, upper)
	if err != nil {
		return fmt.Errorf("allocator: %w", err)
	}

	s, err := sim.New(world, course, alloc, SimConfig(cfg, course))
	if err != nil {
		return err
	}
	s.SetLogger(e.logger)
	s.SetClock(e.clock)
	if e.capture != nil {
		s.SetCapture(e.capture)
	}
	for _, o := range e.observers {
		s.AddObserver(o)
	}

	env := Env{Mass: q.Mass, Dt: cfg.Dt, Clock: e.clock}
	for _, entry := range cfg.Roster {
		factory, err := e.registry.Factory(entry.Pilot, env, entry.Params)
		if err != nil {
			return fmt.Errorf("roster %s: %w", entry.Name, err)
		}
		if err := s.AddAgent(entry.Name, factory); err != nil {
			return err
		}
	}
	if err := s.Reset(sim.ResetOptions{}); err != nil {
		return err
	}

	e.logger.Info("episode ready",
		"gates", len(course),
		"agents", len(s.Agents()),
		"rejected", len(s.Rejections()),
		"seed", cfg.Seed)

	e.world = world
	e.course = course
	e.simulator = s
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.RunWithCallback(ctx, nil)
}

func (e *Experiment) RunWithCallback(ctx context.Context, callback func(tick int) bool) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	res, err := e.simulator.RunWithCallback(ctx, callback)
	if res != nil {
		e.logger.Info("episode done", "ticks", res.Ticks, "time", res.Time)
	}
	return res, err
}

// Simulator returns the underlying simulator for adding observers and probes.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

func (e *Experiment) Course() gates.Course { return e.course }

func (e *Experiment) World() *physics.World { return e.world }

// BuildCourse draws the race course from the seed or builds the custom one.
func BuildCourse(cfg *config.Config) (gates.Course, error) {
	if cfg.Course.Kind == "custom" {
		return gates.CourseFromSpec(cfg.Course.Gates)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return gates.RaceCourse(rng, cfg.Course.Params), nil
}

// SimConfig converts the episode config into scheduler settings. The arena
// box is laid out around the course center.
func SimConfig(cfg *config.Config, course gates.Course) sim.Config {
	q := cfg.Quadrotor
	return sim.Config{
		MaxTicks:     cfg.MaxTicks(),
		MaxAgents:    cfg.Placement.MaxAgents,
		Seed:         cfg.Seed,
		GateStart:    cfg.GateStart,
		LaunchHeight: cfg.Placement.LaunchHeight,
		Rules: sandbox.Rules{
			ErrorOnPrint:   cfg.Rules.ErrorOnPrint,
			ErrorOnTimeout: cfg.Rules.ErrorOnTimeout,
		},
		Budgets: sandbox.Budgets{
			Construct:        cfg.Budgets.Construct,
			Reset:            cfg.Budgets.Reset,
			Run:              cfg.Budgets.Run,
			MaxRunViolations: cfg.Budgets.MaxRunViolations,
		},
		Activity: sim.Activity{Window: cfg.ActivityTicks(), Distance: cfg.Activity.Distance},
		Bounds:   arenaBounds(cfg, course),
		Noise: sim.Noise{
			Marker:          cfg.Noise.Marker,
			Attitude:        cfg.Noise.Attitude,
			Velocity:        cfg.Noise.Velocity,
			AngularVelocity: cfg.Noise.AngularVelocity,
			Measurement:     cfg.Noise.Measurement,
		},
		Placement: cfg.Placement.Solver,
		Shape:     q.Shape(),
		Markers:   q.Markers(),
	}
}

func arenaBounds(cfg *config.Config, course gates.Course) sim.Bounds {
	center := cfg.Course.Params.CenterX()
	if cfg.Course.Kind == "custom" {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, g := range course {
			lo = math.Min(lo, g.Center().X)
			hi = math.Max(hi, g.Center().X)
		}
		center = (lo + hi) / 2
	}
	b := cfg.Bounds
	return sim.Bounds{
		Min: r3.Vec{X: center - b.Length/2, Y: -b.Width / 2, Z: b.Floor},
		Max: r3.Vec{X: center + b.Length/2, Y: b.Width / 2, Z: b.Ceiling},
	}
}
