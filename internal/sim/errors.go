package sim

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName       = errors.New("agent name is empty")
	ErrDuplicateAgent  = errors.New("agent name already in use")
	ErrTooManyAgents   = errors.New("arena is full")
	ErrDuplicateColumn = errors.New("telemetry column declared twice")
	ErrMissingInitial  = errors.New("no initial pose for agent")
	ErrNotReset        = errors.New("episode not reset")
)

// ConfigError is fatal to the episode: the caller set it up wrong.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sim: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configError(op string, format string, args ...any) error {
	return &ConfigError{Op: op, Err: fmt.Errorf(format, args...)}
}
