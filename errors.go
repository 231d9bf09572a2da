package guide

import (
	"errors"
	"fmt"
)

// ErrTerminated is returned by every accept, fill and rollback call
// made after the matcher reached its terminal state.  Only Reset
// makes the matcher usable again.
var ErrTerminated = errors.New("matcher has terminated")

// ErrTokenOutOfRange is returned when a token id is outside of the
// vocabulary attached to the compiled grammar.
var ErrTokenOutOfRange = errors.New("token id out of range")

// GrammarError is returned when a grammar can't be lowered or
// compiled, e.g. because a rule is undefined or left recursive.
type GrammarError struct {
	Rule    string
	Message string
}

// Error returns the human readable representation of a grammar error
func (e *GrammarError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("grammar: %s", e.Message)
	}
	return fmt.Sprintf("grammar: rule `%s`: %s", e.Rule, e.Message)
}

// ConfigError signals an invalid matcher construction setting.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config `%s`: %s", e.Key, e.Message)
}

// BitmaskError is returned when the caller supplied bitmask doesn't
// have the layout expected by the matcher.
type BitmaskError struct {
	Message string
}

func (e *BitmaskError) Error() string {
	return fmt.Sprintf("bitmask: %s", e.Message)
}

// RollbackError is returned when a rollback asks for more steps than
// the history holds.
type RollbackError struct {
	Requested int
	Available int
	Max       int
}

func (e *RollbackError) Error() string {
	if e.Requested < 0 {
		return fmt.Sprintf("rollback: negative number of tokens (%d)", e.Requested)
	}
	return fmt.Sprintf(
		"rollback: can't roll back %d tokens, %d available (max_rollback_tokens=%d)",
		e.Requested, e.Available, e.Max,
	)
}

// errStackDepth marks derivations deeper than `matcher.max_stack_depth`
var errStackDepth = errors.New("maximum stack depth exceeded")

// InternalError signals a broken invariant of the matching engine.
// It means the grammar should have been rejected by Compile, or that
// the start of the grammar nests deeper than the configured stack
// limit.  Input that nests too deep is rejected instead.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal matcher error: %s", e.Message)
}

func (e *InternalError) Unwrap() error { return e.Err }
