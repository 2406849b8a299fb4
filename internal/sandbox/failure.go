package sandbox

import (
	"errors"
	"fmt"
)

// Kind classifies why an agent stopped flying.
type Kind int

const (
	NoFailure Kind = iota
	ConstructionFault
	ConstructionTimeout
	ResetFault
	ResetTimeout
	OutputViolation
	RunFault
	PersistentRunTimeout
	LoggingFault
	// Inactive and OutOfBounds are raised by the scheduler's liveness checks.
	Inactive
	OutOfBounds
)

var kindNames = map[Kind]string{
	NoFailure:            "none",
	ConstructionFault:    "construction_fault",
	ConstructionTimeout:  "construction_timeout",
	ResetFault:           "reset_fault",
	ResetTimeout:         "reset_timeout",
	OutputViolation:      "output_violation",
	RunFault:             "run_fault",
	PersistentRunTimeout: "persistent_run_timeout",
	LoggingFault:         "logging_fault",
	Inactive:             "inactive",
	OutOfBounds:          "out_of_bounds",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("sandbox: unknown failure kind %q", b)
}

// Stage is the controller lifecycle call a failure happened in.
type Stage int

const (
	StageConstruct Stage = iota
	StageReset
	StageRun
	StageLog
	StageLiveness
)

func (s Stage) String() string {
	switch s {
	case StageConstruct:
		return "construct"
	case StageReset:
		return "reset"
	case StageRun:
		return "run"
	case StageLog:
		return "log"
	default:
		return "liveness"
	}
}

// Failure is the only error type the sandbox returns. Reason is meant for
// people: it carries the recovered panic and stack, the controller's own
// error, or a description of the violated rule.
type Failure struct {
	Kind   Kind
	Stage  Stage
	Reason string
	Err    error
}

func NewFailure(kind Kind, stage Stage, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s during %s: %s", f.Kind, f.Stage, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
