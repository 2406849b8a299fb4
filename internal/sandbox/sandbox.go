package sandbox

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/san-kum/flightlab/internal/clock"
	"github.com/san-kum/flightlab/internal/pilot"
)

// Rules switch enforcement on or off. With ErrorOnTimeout off, slow calls
// are still counted but never fail the agent.
type Rules struct {
	ErrorOnPrint   bool
	ErrorOnTimeout bool
}

func DefaultRules() Rules {
	return Rules{ErrorOnPrint: true, ErrorOnTimeout: true}
}

// Budgets are wall-clock limits per lifecycle call. They are checked after
// the call returns; a controller that never returns stalls the episode.
type Budgets struct {
	Construct        time.Duration
	Reset            time.Duration
	Run              time.Duration
	MaxRunViolations int
}

func DefaultBudgets() Budgets {
	return Budgets{
		Construct:        time.Second,
		Reset:            time.Second,
		Run:              10 * time.Millisecond,
		MaxRunViolations: 10,
	}
}

type Sandbox struct {
	rules   Rules
	budgets Budgets
	clock   clock.Clock
	capture Capture
}

func New(rules Rules, budgets Budgets) *Sandbox {
	return &Sandbox{
		rules:   rules,
		budgets: budgets,
		clock:   clock.Real(),
		capture: Streams{},
	}
}

func (s *Sandbox) SetClock(c clock.Clock) { s.clock = c }

func (s *Sandbox) SetCapture(c Capture) { s.capture = c }

func (s *Sandbox) Rules() Rules { return s.rules }

func (s *Sandbox) Budgets() Budgets { return s.budgets }

// Slot owns one constructed controller and its per-episode bookkeeping.
type Slot struct {
	ctrl       pilot.Controller
	violations int
	vars       []string
	lastRun    time.Duration
	color      *pilot.Color
}

func (sl *Slot) Controller() pilot.Controller { return sl.ctrl }

// Violations counts run calls over budget this episode.
func (sl *Slot) Violations() int { return sl.violations }

func (sl *Slot) LastRunTime() time.Duration { return sl.lastRun }

// Declared returns the log variables accepted at the last reset.
func (sl *Slot) Declared() []string { return sl.vars }

// Color returns the color chosen at construction or the palette default
// for index.
func (sl *Slot) Color(index int) pilot.Color {
	if sl.color != nil {
		return *sl.color
	}
	return pilot.DefaultColor(index)
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.value, p.stack)
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return fn()
}

type outcome struct {
	elapsed time.Duration
	output  string
	err     error
}

// guard runs fn with output captured (when printing is an error) and timed.
func (s *Sandbox) guard(fn func() error) (outcome, error) {
	stop := func() (string, error) { return "", nil }
	if s.rules.ErrorOnPrint {
		var err error
		if stop, err = s.capture.Start(); err != nil {
			return outcome{}, fmt.Errorf("output capture unavailable: %w", err)
		}
	}

	start := s.clock.Now()
	callErr := protect(fn)
	elapsed := s.clock.Now().Sub(start)

	out, _ := stop()
	return outcome{elapsed: elapsed, output: out, err: callErr}, nil
}

func (s *Sandbox) judge(o outcome, stage Stage, fault, timeout Kind, budget time.Duration) error {
	if o.err != nil {
		return &Failure{Kind: fault, Stage: stage, Reason: o.err.Error(), Err: o.err}
	}
	if o.output != "" {
		return NewFailure(OutputViolation, stage, "wrote %d bytes of output: %q", len(o.output), excerpt(o.output, 120))
	}
	if s.rules.ErrorOnTimeout && budget > 0 && o.elapsed > budget {
		return NewFailure(timeout, stage, "took %v, budget is %v", o.elapsed, budget)
	}
	return nil
}

// Instantiate constructs a controller. The error, if any, is a *Failure.
func (s *Sandbox) Instantiate(factory pilot.Factory) (*Slot, error) {
	var ctrl pilot.Controller
	o, err := s.guard(func() error {
		var err error
		ctrl, err = factory()
		return err
	})
	if err != nil {
		return nil, &Failure{Kind: ConstructionFault, Stage: StageConstruct, Reason: err.Error(), Err: err}
	}
	if err := s.judge(o, StageConstruct, ConstructionFault, ConstructionTimeout, s.budgets.Construct); err != nil {
		return nil, err
	}
	if ctrl == nil {
		return nil, NewFailure(ConstructionFault, StageConstruct, "factory returned a nil controller")
	}
	sl := &Slot{ctrl: ctrl}
	if cc, ok := ctrl.(pilot.Colorer); ok {
		var c pilot.Color
		co, err := s.guard(func() error {
			c = cc.Color()
			return nil
		})
		if err != nil {
			return nil, &Failure{Kind: ConstructionFault, Stage: StageConstruct, Reason: err.Error(), Err: err}
		}
		// the color query shares the construction budget
		co.elapsed += o.elapsed
		if err := s.judge(co, StageConstruct, ConstructionFault, ConstructionTimeout, s.budgets.Construct); err != nil {
			return nil, err
		}
		sl.color = &c
	}
	return sl, nil
}

// Reset starts a new episode for the slot: it clears the violation count,
// calls the controller's Reset, and validates its declared log variables
// against reserved.
func (s *Sandbox) Reset(sl *Slot, init pilot.Initial, reserved func(string) bool) error {
	sl.violations = 0
	sl.lastRun = 0
	sl.vars = nil

	o, err := s.guard(func() error { return sl.ctrl.Reset(init) })
	if err != nil {
		return &Failure{Kind: ResetFault, Stage: StageReset, Reason: err.Error(), Err: err}
	}
	if err := s.judge(o, StageReset, ResetFault, ResetTimeout, s.budgets.Reset); err != nil {
		return err
	}
	return s.declare(sl, reserved)
}

func (s *Sandbox) declare(sl *Slot, reserved func(string) bool) error {
	vl, ok := sl.ctrl.(pilot.VariableLogger)
	if !ok {
		return nil
	}
	var names []string
	o, err := s.guard(func() error {
		names = vl.VariablesToLog()
		return nil
	})
	if err != nil {
		return &Failure{Kind: LoggingFault, Stage: StageLog, Reason: err.Error(), Err: err}
	}
	if err := s.judge(o, StageLog, LoggingFault, LoggingFault, s.budgets.Reset); err != nil {
		return err
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		switch {
		case name == "":
			return NewFailure(LoggingFault, StageLog, "empty log variable name")
		case reserved != nil && reserved(name):
			return NewFailure(LoggingFault, StageLog, "log variable %q collides with a reserved telemetry key", name)
		case seen[name]:
			return NewFailure(LoggingFault, StageLog, "log variable %q declared more than once", name)
		}
		seen[name] = true
	}
	sl.vars = names
	return nil
}

// Run invokes the controller for one tick and returns the command and the
// measured run time. A slow tick is tolerated until MaxRunViolations slow
// ticks have accumulated this episode.
func (s *Sandbox) Run(sl *Slot, sensors pilot.Sensors) (pilot.Command, time.Duration, error) {
	var cmd pilot.Command
	o, err := s.guard(func() error {
		var err error
		cmd, err = sl.ctrl.Run(sensors)
		return err
	})
	if err != nil {
		return pilot.Command{}, 0, &Failure{Kind: RunFault, Stage: StageRun, Reason: err.Error(), Err: err}
	}
	sl.lastRun = o.elapsed

	if err := s.judge(o, StageRun, RunFault, RunFault, 0); err != nil {
		return pilot.Command{}, o.elapsed, err
	}
	if !cmd.IsFinite() {
		return pilot.Command{}, o.elapsed, NewFailure(RunFault, StageRun, "non-finite command %+v", cmd)
	}

	if s.budgets.Run > 0 && o.elapsed > s.budgets.Run {
		sl.violations++
		if s.rules.ErrorOnTimeout && sl.violations >= s.budgets.MaxRunViolations {
			return pilot.Command{}, o.elapsed, NewFailure(PersistentRunTimeout, StageRun,
				"exceeded the %v run budget on %d ticks (last took %v)", s.budgets.Run, sl.violations, o.elapsed)
		}
	}
	return cmd, o.elapsed, nil
}
