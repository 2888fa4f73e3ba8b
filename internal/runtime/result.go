// SPDX-License-Identifier: MPL-2.0

package runtime

import "fmt"

// Result is the outcome of one Command.
//
// A process that ran and exited non-zero has a non-zero ExitCode and a nil
// Error. Error is set only when the process could not be run at all (binary
// missing, context cancelled before start, I/O setup failure).
type Result struct {
	ExitCode ExitCode
	Error    error
}

// NewErrorResult creates a Result with the given exit code and error.
func NewErrorResult(code ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewSuccessResult creates a Result with exit code 0 and no error.
func NewSuccessResult() *Result {
	return &Result{}
}

// NewExitCodeResult creates a Result for a process that terminated normally
// with the given code.
func NewExitCodeResult(code ExitCode) *Result {
	return &Result{ExitCode: code}
}

// Success reports whether the process ran and exited 0.
func (r *Result) Success() bool {
	return r.Error == nil && r.ExitCode.IsSuccess()
}

// Err folds the result into a single error, or nil on success.
func (r *Result) Err() error {
	switch {
	case r.Error != nil:
		return r.Error
	case !r.ExitCode.IsSuccess():
		return &ExitStatusError{Code: r.ExitCode}
	default:
		return nil
	}
}

// ExitStatusError reports a process that exited with a non-zero status.
type ExitStatusError struct {
	Code ExitCode
}

// Error implements the error interface.
func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
