package sim_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/flightlab/internal/clock"
	"github.com/san-kum/flightlab/internal/geom"
	"github.com/san-kum/flightlab/internal/pilot"
	"github.com/san-kum/flightlab/internal/sandbox"
	"github.com/san-kum/flightlab/internal/sim"
	"github.com/san-kum/flightlab/internal/telemetry"
)

type crashy struct {
	cruise
	after int
}

func (c *crashy) Run(s pilot.Sensors) (pilot.Command, error) {
	if c.calls == c.after {
		panic("lost the plot")
	}
	return c.cruise.Run(s)
}

type slowpoke struct {
	cruise
	clk *clock.FakeClock
}

func (s *slowpoke) Run(in pilot.Sensors) (pilot.Command, error) {
	s.clk.Advance(20 * time.Millisecond)
	return s.cruise.Run(in)
}

type chatty struct{ cruise }

func (c *chatty) Run(in pilot.Sensors) (pilot.Command, error) {
	fmt.Println("hello from the cockpit")
	return c.cruise.Run(in)
}

type logger struct {
	cruise
	Speed float64 `log:"speed"`
	names []string
}

func (l *logger) VariablesToLog() []string { return l.names }

func (l *logger) Run(in pilot.Sensors) (pilot.Command, error) {
	l.Speed = l.v.X
	return l.cruise.Run(in)
}

type sensing struct {
	cruise
	seen []pilot.Sensors
}

func (s *sensing) Run(in pilot.Sensors) (pilot.Command, error) {
	s.seen = append(s.seen, in)
	return s.cruise.Run(in)
}

var _ = Describe("Simulator", func() {
	var (
		engine *kinematic
		cfg    sim.Config
		s      *sim.Simulator
		events []sim.Event
	)

	build := func() {
		var err error
		s, err = sim.New(engine, lineCourse(), identityAllocator(), cfg)
		Expect(err).NotTo(HaveOccurred())
		s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
		s.SetCapture(sandbox.NoCapture{})
		s.AddObserver(sim.ObserverFunc(func(e sim.Event) { events = append(events, e) }))
	}

	start := func(names ...string) map[string]geom.Pose {
		poses := map[string]geom.Pose{}
		for i, n := range names {
			poses[n] = geom.NewPose(r3.Vec{Y: 0.3 * float64(i-len(names)/2), Z: 1}, geom.Identity())
		}
		return poses
	}

	BeforeEach(func() {
		engine = newKinematic(0.04)
		cfg = sim.DefaultConfig(0.04)
		cfg.GateStart = 0
		cfg.MaxTicks = 1000
		cfg.Noise = sim.Noise{}
		events = nil
		build()
	})

	Describe("an empty arena", func() {
		It("returns an empty result at once", func() {
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Ticks).To(Equal(0))
			Expect(res.Agents).To(BeEmpty())
		})
	})

	Describe("a clean lap", func() {
		It("finishes through every gate in order", func() {
			Expect(s.AddAgent("ace", cruiser(r3.Vec{X: 5}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("ace")})).To(Succeed())

			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			ace, ok := res.Agent("ace")
			Expect(ok).To(BeTrue())
			Expect(ace.Status).To(Equal(sim.Finished))
			Expect(ace.Gate).To(Equal(3))
			Expect(ace.FinishTick).To(BeNumerically("~", 29, 1))
			Expect(ace.FinishTime).To(BeNumerically("~", float64(ace.FinishTick)*0.04, 1e-9))
			Expect(res.Ticks).To(Equal(ace.FinishTick + 1))

			var kinds []sim.EventKind
			for _, e := range events {
				kinds = append(kinds, e.Kind)
			}
			Expect(kinds).To(Equal([]sim.EventKind{sim.EventGate, sim.EventGate, sim.EventFinished}))
		})

		It("keeps tick records gapless up to the finish", func() {
			Expect(s.AddAgent("ace", cruiser(r3.Vec{X: 5}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("ace")})).To(Succeed())
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			log := res.Agents[0].Telemetry
			Expect(log.Len()).To(Equal(res.Agents[0].FinishTick))
			ts, err := log.Scalar(telemetry.KeyTime)
			Expect(err).NotTo(HaveOccurred())
			for i, v := range ts {
				Expect(v).To(BeNumerically("~", float64(i)*0.04, 1e-9))
			}
			for _, c := range log.Columns() {
				Expect(c.Rows()).To(Equal(log.Len()), c.Name)
			}
		})
	})

	Describe("agent isolation", func() {
		It("leaves other agents untouched when one crashes", func() {
			solo := newKinematic(0.04)
			ref, err := sim.New(solo, lineCourse(), identityAllocator(), cfg)
			Expect(err).NotTo(HaveOccurred())
			ref.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
			ref.SetCapture(sandbox.NoCapture{})
			Expect(ref.AddAgent("b", cruiser(r3.Vec{X: 1}))).To(Succeed())
			Expect(ref.Reset(sim.ResetOptions{Initial: start("a", "b", "c")})).To(Succeed())
			want, err := ref.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(s.AddAgent("a", func() (pilot.Controller, error) {
				return &crashy{cruise: cruise{v: r3.Vec{X: 2}}, after: 5}, nil
			})).To(Succeed())
			Expect(s.AddAgent("b", cruiser(r3.Vec{X: 1}))).To(Succeed())
			Expect(s.AddAgent("c", idle())).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("a", "b", "c")})).To(Succeed())
			got, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			a, _ := got.Agent("a")
			Expect(a.Status).To(Equal(sim.Failed))
			Expect(a.Failure).To(Equal(sandbox.RunFault))
			Expect(a.Reason).To(ContainSubstring("lost the plot"))
			Expect(a.EndTick).To(Equal(5))
			Expect(a.Telemetry.Len()).To(Equal(5))

			b, _ := got.Agent("b")
			wb, _ := want.Agent("b")
			Expect(b.Status).To(Equal(wb.Status))
			px, _ := b.Telemetry.Scalar("p_x")
			wpx, _ := wb.Telemetry.Scalar("p_x")
			Expect(px).To(Equal(wpx))
		})

		It("fails each misbehaving agent for its own reason only", func() {
			fake := clock.Fake(time.Unix(0, 0))
			s.SetClock(fake)
			s.SetCapture(sandbox.Streams{})
			Expect(s.AddAgent("panics", func() (pilot.Controller, error) {
				return &crashy{cruise: cruise{v: r3.Vec{X: 1}}, after: 3}, nil
			})).To(Succeed())
			Expect(s.AddAgent("prints", func() (pilot.Controller, error) {
				return &chatty{cruise: cruise{v: r3.Vec{X: 1}}}, nil
			})).To(Succeed())
			Expect(s.AddAgent("stalls", func() (pilot.Controller, error) {
				return &slowpoke{cruise: cruise{v: r3.Vec{X: 1}}, clk: fake}, nil
			})).To(Succeed())
			Expect(s.AddAgent("steady", cruiser(r3.Vec{X: 1}))).To(Succeed())
			Expect(s.AddAgent("steady2", cruiser(r3.Vec{X: 1}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("panics", "prints", "stalls", "steady", "steady2")})).To(Succeed())

			for i := 0; i < 20; i++ {
				Expect(s.Step()).To(Succeed())
			}
			want := map[string]sandbox.Kind{
				"panics": sandbox.RunFault,
				"prints": sandbox.OutputViolation,
				"stalls": sandbox.PersistentRunTimeout,
			}
			for name, kind := range want {
				a, ok := s.Agent(name)
				Expect(ok).To(BeTrue())
				Expect(a.Status()).To(Equal(sim.Failed), name)
				Expect(a.Failure().Kind).To(Equal(kind), name)
			}
			steady, _ := s.Agent("steady")
			steady2, _ := s.Agent("steady2")
			Expect(steady.Status()).To(Equal(sim.Running))
			Expect(steady.Log().Len()).To(Equal(20))
			Expect(steady2.Log().Len()).To(Equal(steady.Log().Len()))
		})

		It("shows running agents the others' positions from the start of the tick", func() {
			probe := &sensing{cruise: cruise{v: r3.Vec{X: 1}}}
			Expect(s.AddAgent("watcher", func() (pilot.Controller, error) { return probe, nil })).To(Succeed())
			Expect(s.AddAgent("target", cruiser(r3.Vec{X: 1}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("watcher", "target")})).To(Succeed())
			Expect(s.Step()).To(Succeed())
			Expect(s.Step()).To(Succeed())

			Expect(probe.seen).To(HaveLen(2))
			Expect(probe.seen[0].Others).To(HaveLen(1))
			Expect(probe.seen[1].Others[0].X).To(BeNumerically("~", 0.04, 1e-12))
			Expect(probe.seen[0].RingPos).To(Equal(r3.Vec{X: 2, Z: 1}))
			Expect(probe.seen[0].IsLastRing).To(BeFalse())
		})
	})

	Describe("inactivity", func() {
		It("fails every hovering agent once the window fills", func() {
			for _, n := range []string{"p", "q", "r"} {
				Expect(s.AddAgent(n, idle())).To(Succeed())
			}
			Expect(s.Reset(sim.ResetOptions{Initial: start("p", "q", "r")})).To(Succeed())
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			w := cfg.Activity.Window
			Expect(w).To(Equal(251))
			Expect(res.Ticks).To(Equal(w))
			for _, a := range res.Agents {
				Expect(a.Status).To(Equal(sim.Failed))
				Expect(a.Failure).To(Equal(sandbox.Inactive))
				Expect(a.EndTick).To(Equal(w - 1))
				Expect(a.Telemetry.Len()).To(Equal(w))
			}
		})
	})

	Describe("inactivity beside moving agents", func() {
		It("fails only the hovering agent and lets the others fly out the budget", func() {
			Expect(s.AddAgent("a", cruiser(r3.Vec{X: 0.1}))).To(Succeed())
			Expect(s.AddAgent("idle", idle())).To(Succeed())
			Expect(s.AddAgent("c", cruiser(r3.Vec{X: 0.1}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("a", "idle", "c")})).To(Succeed())
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Ticks).To(Equal(1000))

			w := cfg.Activity.Window
			hover, _ := res.Agent("idle")
			Expect(hover.Status).To(Equal(sim.Failed))
			Expect(hover.Failure).To(Equal(sandbox.Inactive))
			Expect(hover.EndTick).To(Equal(w - 1))
			Expect(hover.Telemetry.Len()).To(Equal(w))

			for _, name := range []string{"a", "c"} {
				a, _ := res.Agent(name)
				Expect(a.Status).To(Equal(sim.Running), name)
				Expect(a.Telemetry.Len()).To(Equal(1000), name)
			}
		})
	})

	Describe("liveness", func() {
		It("fails an agent that leaves the arena", func() {
			Expect(s.AddAgent("rocket", cruiser(r3.Vec{Z: 100}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("rocket")})).To(Succeed())
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Agents[0].Failure).To(Equal(sandbox.OutOfBounds))
			Expect(res.Agents[0].EndTick).To(Equal(5))
		})
	})

	Describe("the tick budget", func() {
		It("stops at MaxTicks with agents still running", func() {
			cfg.MaxTicks = 10
			build()
			Expect(s.AddAgent("slow", cruiser(r3.Vec{X: 0.5}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("slow")})).To(Succeed())
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Ticks).To(Equal(10))
			Expect(res.Agents[0].Status).To(Equal(sim.Running))
			Expect(res.Agents[0].Telemetry.Len()).To(Equal(10))
		})

		It("fails a controller that is persistently slow", func() {
			fake := clock.Fake(time.Unix(0, 0))
			s.SetClock(fake)
			Expect(s.AddAgent("sloth", func() (pilot.Controller, error) {
				return &slowpoke{cruise: cruise{v: r3.Vec{X: 1}}, clk: fake}, nil
			})).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("sloth")})).To(Succeed())
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Agents[0].Failure).To(Equal(sandbox.PersistentRunTimeout))
			Expect(res.Agents[0].Violations).To(Equal(cfg.Budgets.MaxRunViolations))
			Expect(res.Agents[0].EndTick).To(Equal(cfg.Budgets.MaxRunViolations - 1))
		})

		It("stops between ticks when the context is cancelled", func() {
			Expect(s.AddAgent("ace", cruiser(r3.Vec{X: 1}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("ace")})).To(Succeed())
			ctx, cancel := context.WithCancel(context.Background())
			res, err := s.RunWithCallback(ctx, func(tick int) bool {
				if tick == 3 {
					cancel()
				}
				return true
			})
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Ticks).To(Equal(3))
		})
	})

	Describe("output rules", func() {
		It("fails a controller that prints", func() {
			s.SetCapture(sandbox.Streams{})
			Expect(s.AddAgent("talker", func() (pilot.Controller, error) {
				return &chatty{cruise: cruise{v: r3.Vec{X: 1}}}, nil
			})).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("talker")})).To(Succeed())
			Expect(s.Step()).To(Succeed())
			a, _ := s.Agent("talker")
			Expect(a.Status()).To(Equal(sim.Failed))
			Expect(a.Failure().Kind).To(Equal(sandbox.OutputViolation))
		})
	})

	Describe("configuration", func() {
		It("rejects agents whose constructor fails", func() {
			Expect(s.AddAgent("broken", func() (pilot.Controller, error) {
				return nil, errors.New("no props")
			})).To(Succeed())
			Expect(s.Agents()).To(BeEmpty())
			Expect(s.Rejections()).To(HaveLen(1))
			Expect(s.Rejections()[0].Failure.Kind).To(Equal(sandbox.ConstructionFault))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(sim.EventRejected))

			err := s.AddAgent("broken", idle())
			Expect(errors.Is(err, sim.ErrDuplicateAgent)).To(BeTrue())
		})

		It("enforces unique names and the agent limit", func() {
			cfg.MaxAgents = 2
			build()
			Expect(s.AddAgent("a", idle())).To(Succeed())
			Expect(errors.Is(s.AddAgent("a", idle()), sim.ErrDuplicateAgent)).To(BeTrue())
			Expect(s.AddAgent("b", idle())).To(Succeed())
			err := s.AddAgent("c", idle())
			var cerr *sim.ConfigError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(errors.Is(err, sim.ErrTooManyAgents)).To(BeTrue())
			Expect(errors.Is(s.AddAgent("", idle()), sim.ErrEmptyName)).To(BeTrue())
		})

		It("treats a probe on a reserved column as fatal", func() {
			s.AddProbe(sim.Probe{Name: "p_x", Sample: func(*sim.Agent, telemetry.Record) []float64 { return []float64{0} }})
			Expect(s.AddAgent("a", idle())).To(Succeed())
			err := s.Reset(sim.ResetOptions{Initial: start("a")})
			Expect(errors.Is(err, sim.ErrDuplicateColumn)).To(BeTrue())
		})

		It("fails only the agent whose variables collide with a probe", func() {
			s.AddProbe(sim.Probe{Name: "speed", Sample: func(a *sim.Agent, rec telemetry.Record) []float64 {
				return []float64{rec.Velocity.X}
			}})
			Expect(s.AddAgent("clash", func() (pilot.Controller, error) {
				return &logger{cruise: cruise{v: r3.Vec{X: 1}}, names: []string{"speed"}}, nil
			})).To(Succeed())
			Expect(s.AddAgent("fine", cruiser(r3.Vec{X: 1}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("clash", "fine")})).To(Succeed())

			clash, _ := s.Agent("clash")
			Expect(clash.Status()).To(Equal(sim.Failed))
			Expect(clash.Failure().Kind).To(Equal(sandbox.LoggingFault))
			Expect(clash.EndTick()).To(Equal(0))

			Expect(s.Step()).To(Succeed())
			fine, _ := s.Agent("fine")
			Expect(fine.Status()).To(Equal(sim.Running))
			Expect(fine.Log().Column("speed")).NotTo(BeNil())
			Expect(clash.Log().Len()).To(Equal(0))
		})

		It("records declared controller variables", func() {
			Expect(s.AddAgent("logged", func() (pilot.Controller, error) {
				return &logger{cruise: cruise{v: r3.Vec{X: 1.5}}, names: []string{"speed", "missing"}}, nil
			})).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("logged")})).To(Succeed())
			Expect(s.Step()).To(Succeed())
			a, _ := s.Agent("logged")
			speed, err := a.Log().Scalar("speed")
			Expect(err).NotTo(HaveOccurred())
			Expect(speed).To(Equal([]float64{1.5}))
			missing, _ := a.Log().Scalar("missing")
			Expect(math.IsNaN(missing[0])).To(BeTrue())
		})

		It("requires an initial pose for every agent", func() {
			Expect(s.AddAgent("a", idle())).To(Succeed())
			Expect(s.AddAgent("b", idle())).To(Succeed())
			err := s.Reset(sim.ResetOptions{Initial: start("a")})
			Expect(errors.Is(err, sim.ErrMissingInitial)).To(BeTrue())
		})

		It("refuses to step before a reset", func() {
			Expect(s.AddAgent("a", idle())).To(Succeed())
			Expect(errors.Is(s.Step(), sim.ErrNotReset)).To(BeTrue())
		})
	})

	Describe("engine errors", func() {
		It("end the episode", func() {
			engine.failAt = 3
			Expect(s.AddAgent("a", cruiser(r3.Vec{X: 1}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("a")})).To(Succeed())
			res, err := s.Run(context.Background())
			Expect(errors.Is(err, errEngineDown)).To(BeTrue())
			Expect(res.Ticks).To(Equal(3))
		})
	})

	Describe("placement", func() {
		It("spreads agents around the first gate deterministically", func() {
			names := []string{"a", "b", "c", "d"}
			place := func() []r3.Vec {
				e := newKinematic(0.04)
				sm, err := sim.New(e, lineCourse(), identityAllocator(), cfg)
				Expect(err).NotTo(HaveOccurred())
				sm.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
				for _, n := range names {
					Expect(sm.AddAgent(n, idle())).To(Succeed())
				}
				Expect(sm.Reset(sim.ResetOptions{})).To(Succeed())
				var out []r3.Vec
				for _, a := range sm.Agents() {
					out = append(out, a.Position())
				}
				return out
			}
			first, second := place(), place()
			Expect(first).To(Equal(second))
			for i, p := range first {
				Expect(p.Z).To(Equal(cfg.LaunchHeight))
				Expect(r3.Norm(r3.Sub(p, r3.Vec{X: 2, Z: p.Z}))).To(BeNumerically("<", cfg.Placement.Outer))
				for _, q := range first[i+1:] {
					Expect(r3.Norm(r3.Sub(p, q))).To(BeNumerically(">", 2*cfg.Placement.Inner))
				}
			}
		})
	})

	Describe("standings", func() {
		It("ranks finishers by time, then the field by progress", func() {
			Expect(s.AddAgent("idler", idle())).To(Succeed())
			Expect(s.AddAgent("slow", cruiser(r3.Vec{X: 3}))).To(Succeed())
			Expect(s.AddAgent("fast", cruiser(r3.Vec{X: 6}))).To(Succeed())
			Expect(s.Reset(sim.ResetOptions{Initial: start("idler", "slow", "fast")})).To(Succeed())
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			var order []string
			for _, a := range res.Standings() {
				order = append(order, a.Name)
			}
			Expect(order).To(Equal([]string{"fast", "slow", "idler"}))
		})
	})
})
