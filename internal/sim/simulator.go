package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/allocator"
	"github.com/san-kum/flightlab/internal/clock"
	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/geom"
	"github.com/san-kum/flightlab/internal/metrics"
	"github.com/san-kum/flightlab/internal/physics"
	"github.com/san-kum/flightlab/internal/pilot"
	"github.com/san-kum/flightlab/internal/sandbox"
	"github.com/san-kum/flightlab/internal/telemetry"
)

// Probe adds a host-side column to every agent's telemetry. Sample is called
// after the tick record is appended.
type Probe struct {
	Name   string
	Sample func(a *Agent, rec telemetry.Record) []float64
}

// ResetOptions override how agents are placed. When Initial is set it must
// hold a pose for every agent.
type ResetOptions struct {
	Initial map[string]geom.Pose
}

// Simulator runs one episode at a time on a single goroutine. Agents are
// processed in insertion order every tick.
type Simulator struct {
	engine  physics.Engine
	course  gates.Course
	alloc   *allocator.Allocator
	cfg     Config
	sandbox *sandbox.Sandbox
	logger  *slog.Logger
	rng     *rand.Rand

	agents     []*Agent
	byName     map[string]int
	rejections []Rejection
	observers  []Observer
	probes     []Probe
	metrics    []metrics.Factory

	tick  int
	ready bool
}

func New(engine physics.Engine, course gates.Course, alloc *allocator.Allocator, cfg Config) (*Simulator, error) {
	if len(course) == 0 {
		return nil, &ConfigError{Op: "new", Err: gates.ErrEmptyCourse}
	}
	if alloc == nil || alloc.Dim() != 4 {
		return nil, configError("new", "allocator must map 4 generalized commands")
	}
	if cfg.GateStart < 0 || cfg.GateStart >= len(course) {
		return nil, configError("new", "gate start %d outside course of %d gates", cfg.GateStart, len(course))
	}
	if cfg.Activity.Window < 1 {
		return nil, configError("new", "activity window must be at least one tick")
	}
	sb := sandbox.New(cfg.Rules, cfg.Budgets)
	return &Simulator{
		engine:  engine,
		course:  course,
		alloc:   alloc,
		cfg:     cfg,
		sandbox: sb,
		logger:  slog.New(slog.DiscardHandler),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		byName:  make(map[string]int),
		metrics: metrics.Defaults(),
	}, nil
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) AddProbe(p Probe) {
	s.probes = append(s.probes, p)
	s.ready = false
}

func (s *Simulator) AddMetric(f metrics.Factory) {
	s.metrics = append(s.metrics, f)
	s.ready = false
}

func (s *Simulator) SetClock(c clock.Clock) { s.sandbox.SetClock(c) }

func (s *Simulator) SetCapture(c sandbox.Capture) { s.sandbox.SetCapture(c) }

func (s *Simulator) SetLogger(l *slog.Logger) { s.logger = l }

func (s *Simulator) Config() Config { return s.cfg }

func (s *Simulator) Course() gates.Course { return s.course }

func (s *Simulator) Tick() int { return s.tick }

func (s *Simulator) Time() float64 { return float64(s.tick) * s.engine.Dt() }

// AddAgent constructs the controller through the sandbox. A controller that
// fails to construct is recorded in Rejections and never enters the arena;
// that is not an error.
func (s *Simulator) AddAgent(name string, factory pilot.Factory) error {
	if name == "" {
		return &ConfigError{Op: "add agent", Err: ErrEmptyName}
	}
	if _, ok := s.byName[name]; ok {
		return &ConfigError{Op: "add agent", Err: fmt.Errorf("%w: %q", ErrDuplicateAgent, name)}
	}
	for _, r := range s.rejections {
		if r.Name == name {
			return &ConfigError{Op: "add agent", Err: fmt.Errorf("%w: %q", ErrDuplicateAgent, name)}
		}
	}
	if s.cfg.MaxAgents > 0 && len(s.agents) >= s.cfg.MaxAgents {
		return &ConfigError{Op: "add agent", Err: fmt.Errorf("%w: %d agents", ErrTooManyAgents, s.cfg.MaxAgents)}
	}

	slot, err := s.sandbox.Instantiate(factory)
	if err != nil {
		f, ok := sandbox.AsFailure(err)
		if !ok {
			f = &sandbox.Failure{Kind: sandbox.ConstructionFault, Stage: sandbox.StageConstruct, Reason: err.Error(), Err: err}
		}
		s.rejections = append(s.rejections, Rejection{Name: name, Failure: f})
		s.logger.Warn("agent rejected", "agent", name, "kind", f.Kind.String(), "reason", firstLine(f.Reason))
		s.emit(Event{Agent: name, Kind: EventRejected, Detail: f.Kind.String()})
		return nil
	}

	det, err := gates.NewDetector(s.course, s.cfg.GateStart)
	if err != nil {
		return &ConfigError{Op: "add agent", Err: err}
	}
	idx := len(s.agents)
	s.agents = append(s.agents, &Agent{
		name:     name,
		index:    idx,
		slot:     slot,
		color:    slot.Color(idx),
		detector: det,
		endTick:  -1,
		log:      telemetry.NewLog(),
	})
	s.byName[name] = idx
	s.ready = false
	return nil
}

func (s *Simulator) Rejections() []Rejection { return s.rejections }

func (s *Simulator) Agent(name string) (*Agent, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.agents[i], true
}

func (s *Simulator) Agents() []*Agent { return s.agents }

func (s *Simulator) reserved() (func(string) bool, error) {
	probes := make(map[string]bool, len(s.probes))
	for _, p := range s.probes {
		if p.Name == "" || telemetry.Reserved(p.Name) || probes[p.Name] {
			return nil, &ConfigError{Op: "reset", Err: fmt.Errorf("%w: probe %q", ErrDuplicateColumn, p.Name)}
		}
		probes[p.Name] = true
	}
	return func(name string) bool { return telemetry.Reserved(name) || probes[name] }, nil
}

// Reset starts a new episode: agents are placed, bodies created or moved,
// logs and metrics cleared, and every controller's Reset called. Agents
// whose Reset fails are marked Failed before tick 0.
func (s *Simulator) Reset(opts ResetOptions) error {
	reserved, err := s.reserved()
	if err != nil {
		return err
	}
	s.tick = 0
	s.ready = false
	s.rng = rand.New(rand.NewSource(s.cfg.Seed))

	poses, err := s.initialPoses(opts)
	if err != nil {
		return err
	}

	for i, a := range s.agents {
		pose := poses[i]
		if a.hasBody {
			if err := s.engine.SetPose(a.body, pose); err != nil {
				return fmt.Errorf("sim: engine: %w", err)
			}
		} else {
			h, err := s.engine.CreateBody(s.cfg.Shape, pose)
			if err != nil {
				return fmt.Errorf("sim: engine: %w", err)
			}
			a.body, a.hasBody = h, true
		}
		lin := r3.Vec{X: s.noise(s.cfg.Noise.Velocity), Y: s.noise(s.cfg.Noise.Velocity), Z: s.noise(s.cfg.Noise.Velocity)}
		ang := r3.Vec{X: s.noise(s.cfg.Noise.AngularVelocity), Y: s.noise(s.cfg.Noise.AngularVelocity), Z: s.noise(s.cfg.Noise.AngularVelocity)}
		if err := s.engine.SetVelocity(a.body, lin, ang); err != nil {
			return fmt.Errorf("sim: engine: %w", err)
		}

		a.status = Running
		a.failure = nil
		a.endTick = -1
		a.last = pose.Position
		a.detector.Reset(pose.Position)
		a.log = telemetry.NewLog()
		a.metrics = metrics.NewSet(s.metrics)

		_, _, yaw := pose.Euler()
		init := pilot.Initial{
			PX:  pose.Position.X + s.noise(s.cfg.Noise.Measurement),
			PY:  pose.Position.Y + s.noise(s.cfg.Noise.Measurement),
			PZ:  pose.Position.Z + s.noise(s.cfg.Noise.Measurement),
			Yaw: yaw + s.noise(s.cfg.Noise.Measurement),
		}
		if err := s.sandbox.Reset(a.slot, init, reserved); err != nil {
			if ferr := s.fail(a, asFailure(err, sandbox.ResetFault, sandbox.StageReset)); ferr != nil {
				return ferr
			}
		}
	}
	s.ready = true
	s.logger.Debug("episode reset", "agents", len(s.agents), "rejected", len(s.rejections), "gates", len(s.course))
	return nil
}

func (s *Simulator) initialPoses(opts ResetOptions) ([]geom.Pose, error) {
	poses := make([]geom.Pose, len(s.agents))
	if opts.Initial != nil {
		for i, a := range s.agents {
			p, ok := opts.Initial[a.name]
			if !ok {
				return nil, &ConfigError{Op: "reset", Err: fmt.Errorf("%w: %q", ErrMissingInitial, a.name)}
			}
			poses[i] = p
		}
		return poses, nil
	}

	pts, err := s.cfg.Placement.Place(s.rng, len(s.agents))
	if err != nil {
		return nil, &ConfigError{Op: "reset", Err: err}
	}
	center := s.course[0].Center()
	n := s.course[s.cfg.GateStart].Normal()
	heading := math.Atan2(n.Y, n.X)
	for i, p := range pts {
		pos := r3.Vec{X: center.X + p.X, Y: center.Y + p.Y, Z: s.cfg.LaunchHeight}
		rot := geom.FromEuler(
			s.noise(s.cfg.Noise.Attitude),
			s.noise(s.cfg.Noise.Attitude),
			heading+s.noise(s.cfg.Noise.Attitude),
		)
		poses[i] = geom.NewPose(pos, rot)
	}
	return poses, nil
}

func (s *Simulator) noise(sigma float64) float64 {
	if sigma == 0 {
		return 0
	}
	return s.rng.NormFloat64() * sigma
}

func (s *Simulator) running() bool {
	for _, a := range s.agents {
		if a.status == Running {
			return true
		}
	}
	return false
}

// Step advances the episode by one tick. Only configuration and engine
// errors are returned; everything an agent does wrong stays with the agent.
func (s *Simulator) Step() error {
	if !s.ready {
		return &ConfigError{Op: "step", Err: ErrNotReset}
	}

	type seen struct {
		index int
		pos   r3.Vec
	}
	var snapshot []seen
	for _, a := range s.agents {
		if a.status != Running {
			continue
		}
		p, err := s.engine.Pose(a.body)
		if err != nil {
			return fmt.Errorf("sim: engine: %w", err)
		}
		snapshot = append(snapshot, seen{a.index, p.Position})
	}

	for _, a := range s.agents {
		if a.status != Running {
			continue
		}
		others := make([]r3.Vec, 0, len(snapshot))
		for _, o := range snapshot {
			if o.index != a.index {
				others = append(others, o.pos)
			}
		}
		if err := s.stepAgent(a, others); err != nil {
			return err
		}
	}

	if err := s.engine.Step(); err != nil {
		return fmt.Errorf("sim: engine: %w", err)
	}
	s.tick++
	return nil
}

func (s *Simulator) stepAgent(a *Agent, others []r3.Vec) error {
	t := s.Time()
	pose, err := s.engine.Pose(a.body)
	if err != nil {
		return fmt.Errorf("sim: engine: %w", err)
	}
	lin, ang, err := s.engine.Velocity(a.body)
	if err != nil {
		return fmt.Errorf("sim: engine: %w", err)
	}
	a.last = pose.Position

	switch a.detector.Advance(s.tick, pose.Position) {
	case gates.Forward:
		s.emit(Event{Tick: s.tick, Time: t, Agent: a.name, Kind: EventGate, Gate: a.detector.Current()})
	case gates.Backward:
		s.emit(Event{Tick: s.tick, Time: t, Agent: a.name, Kind: EventBackward, Gate: a.detector.Current()})
	case gates.Finished:
		return s.finish(a)
	}

	sensors := pilot.Sensors{Others: others}
	for i, m := range s.cfg.Markers {
		w := pose.ToWorld(m)
		sensors.Markers[i] = r3.Vec{
			X: w.X + s.noise(s.cfg.Noise.Marker),
			Y: w.Y + s.noise(s.cfg.Noise.Marker),
			Z: w.Z + s.noise(s.cfg.Noise.Marker),
		}
	}
	if g := a.detector.Target(); g != nil {
		sensors.RingPos = g.Center()
		sensors.RingDir = g.Normal()
	}
	sensors.IsLastRing = a.detector.IsLast()

	cmd, elapsed, err := s.sandbox.Run(a.slot, sensors)
	if err != nil {
		return s.fail(a, asFailure(err, sandbox.RunFault, sandbox.StageRun))
	}

	requested := cmd.Vector()
	alloc, err := s.alloc.Allocate(requested)
	if err != nil {
		return &ConfigError{Op: "allocate", Err: err}
	}
	realized := pilot.CommandFromVector(alloc.Realized)

	rot := geom.Normalize(pose.Rotation)
	force := rot.Rotate(r3.Vec{Z: realized.Fz})
	torque := rot.Rotate(r3.Vec{X: realized.TauX, Y: realized.TauY, Z: realized.TauZ})
	if err := s.engine.ApplyForce(a.body, pose.Position, force); err != nil {
		return fmt.Errorf("sim: engine: %w", err)
	}
	if err := s.engine.ApplyTorque(a.body, torque); err != nil {
		return fmt.Errorf("sim: engine: %w", err)
	}

	roll, pitch, yaw := pose.Euler()
	inv := geom.Inverse(rot)
	rec := telemetry.Record{
		Time:            t,
		Position:        pose.Position,
		Roll:            roll,
		Pitch:           pitch,
		Yaw:             yaw,
		Velocity:        inv.Rotate(lin),
		AngularVelocity: inv.Rotate(ang),
		Markers:         sensors.Markers,
		RingPos:         sensors.RingPos,
		RingDir:         sensors.RingDir,
		IsLastRing:      sensors.IsLastRing,
		Actuators:       alloc.Actuators,
		Gate:            a.detector.Current(),
		RunTime:         elapsed.Seconds(),
	}
	copy(rec.Requested[:], requested)
	copy(rec.Realized[:], alloc.Realized)

	if err := s.record(a, rec); err != nil {
		return s.fail(a, asFailure(err, sandbox.LoggingFault, sandbox.StageLog))
	}

	a.metrics.Observe(metrics.Sample{
		Tick:      s.tick,
		Time:      t,
		Requested: rec.Requested,
		Realized:  rec.Realized,
		Saturated: alloc.Saturated,
		Position:  pose.Position,
		Velocity:  lin,
		RunTime:   elapsed,
	})

	if f := s.liveness(a); f != nil {
		return s.fail(a, f)
	}
	return nil
}

func (s *Simulator) record(a *Agent, rec telemetry.Record) error {
	if err := a.log.AppendRecord(rec); err != nil {
		return err
	}
	vars, err := s.sandbox.Variables(a.slot)
	if err != nil {
		return err
	}
	for _, v := range vars {
		if err := a.log.Append(v.Name, v.Values...); err != nil {
			return err
		}
	}
	for _, p := range s.probes {
		if err := a.log.Append(p.Name, p.Sample(a, rec)...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) finish(a *Agent) error {
	a.status = Finished
	a.endTick = s.tick
	s.emit(Event{Tick: s.tick, Time: s.Time(), Agent: a.name, Kind: EventFinished, Gate: a.detector.Current()})
	s.logger.Info("agent finished", "agent", a.name, "time", s.Time())
	return s.retire(a)
}

func (s *Simulator) fail(a *Agent, f *sandbox.Failure) error {
	a.status = Failed
	a.failure = f
	a.endTick = s.tick
	s.emit(Event{Tick: s.tick, Time: s.Time(), Agent: a.name, Kind: EventFailed, Gate: a.detector.Current(), Detail: f.Kind.String()})
	s.logger.Warn("agent failed", "agent", a.name, "kind", f.Kind.String(), "stage", f.Stage.String(), "reason", firstLine(f.Reason))
	return s.retire(a)
}

// retire takes a terminal agent's body out of the world.
func (s *Simulator) retire(a *Agent) error {
	if !a.hasBody {
		return nil
	}
	a.hasBody = false
	if err := s.engine.RemoveBody(a.body); err != nil {
		return fmt.Errorf("sim: engine: %w", err)
	}
	return nil
}

func (s *Simulator) emit(e Event) {
	for _, o := range s.observers {
		o.OnEvent(e)
	}
}

// Run steps until no agent is running or MaxTicks is reached. The context
// is only consulted between ticks.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	return s.RunWithCallback(ctx, nil)
}

// RunWithCallback is Run with a hook after every tick; returning false
// stops the episode early.
func (s *Simulator) RunWithCallback(ctx context.Context, callback func(tick int) bool) (*Result, error) {
	if len(s.agents) == 0 {
		return s.Result(), nil
	}
	if !s.ready {
		return nil, &ConfigError{Op: "run", Err: ErrNotReset}
	}
	for s.running() && (s.cfg.MaxTicks == 0 || s.tick < s.cfg.MaxTicks) {
		select {
		case <-ctx.Done():
			return s.Result(), ctx.Err()
		default:
		}
		if err := s.Step(); err != nil {
			return s.Result(), err
		}
		if callback != nil && !callback(s.tick) {
			break
		}
	}
	return s.Result(), nil
}

func asFailure(err error, kind sandbox.Kind, stage sandbox.Stage) *sandbox.Failure {
	if f, ok := sandbox.AsFailure(err); ok {
		return f
	}
	return &sandbox.Failure{Kind: kind, Stage: stage, Reason: err.Error(), Err: err}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
