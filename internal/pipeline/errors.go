// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

const (
	// KindEnvironment covers a missing interpreter or backend and a failed
	// installation.
	KindEnvironment Kind = iota + 1
	// KindCompilation covers a missing entry module and a failed backend run.
	KindCompilation
	// KindInterrupted is a run cancelled through its context.
	KindInterrupted
)

const (
	// ExitCompilation is the exit code for compilation failures.
	ExitCompilation = 1
	// ExitEnvironment is the exit code for environment failures.
	ExitEnvironment = 2
	// ExitInterrupted follows the shell convention for SIGINT.
	ExitInterrupted = 130
)

type (
	// Kind classifies a fatal stage failure.
	Kind int

	// StageError is a fatal failure of one stage.
	StageError struct {
		Stage Stage
		Kind  Kind
		Err   error
	}
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindCompilation:
		return "compilation"
	case KindInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ExitCode maps the kind to the process exit code.
func (k Kind) ExitCode() int {
	switch k {
	case KindEnvironment:
		return ExitEnvironment
	case KindInterrupted:
		return ExitInterrupted
	default:
		return ExitCompilation
	}
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }

// ExitCode is the process exit code for the failure.
func (e *StageError) ExitCode() int { return e.Kind.ExitCode() }

// KindOf returns the Kind of the first StageError in err's chain, or zero.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
