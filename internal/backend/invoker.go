// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/captaincmd/pybuild/internal/runtime"
)

var (
	// ErrEntryNotFound is returned before spawning when the entry module is absent.
	ErrEntryNotFound = errors.New("entry module not found")
	// ErrCompilationFailed is the sentinel error wrapped by CompilationError.
	ErrCompilationFailed = errors.New("compilation failed")
)

type (
	// CompilationError reports a backend that failed to start or exited non-zero.
	CompilationError struct {
		Backend Name
		// ExitCode is the backend's exit status; zero when it never ran.
		ExitCode runtime.ExitCode
		Cause    error
	}

	// Invoker runs a backend's command line.
	Invoker struct {
		runner runtime.Runner
		env    []string
		stdout io.Writer
		stderr io.Writer
	}

	// InvokerOption configures an Invoker.
	InvokerOption func(*Invoker)
)

// Error implements the error interface.
func (e *CompilationError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s exited with status %d", e.Backend, e.ExitCode)
	}
	return fmt.Sprintf("%s could not be run: %v", e.Backend, e.Cause)
}

// Unwrap exposes ErrCompilationFailed and the cause.
func (e *CompilationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCompilationFailed}
	}
	return []error{ErrCompilationFailed, e.Cause}
}

// WithEnv adds environment entries to the backend process.
func WithEnv(env []string) InvokerOption {
	return func(i *Invoker) { i.env = env }
}

// WithOutput sets where the backend's output goes.
func WithOutput(stdout, stderr io.Writer) InvokerOption {
	return func(i *Invoker) {
		i.stdout = stdout
		i.stderr = stderr
	}
}

// NewInvoker creates an Invoker running commands through runner.
func NewInvoker(runner runtime.Runner, opts ...InvokerOption) *Invoker {
	i := &Invoker{runner: runner}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Command is the subprocess Invoke runs, with the project directory as its
// working directory.
func (i *Invoker) Command(python string, b Backend, req Request) runtime.Command {
	return runtime.Command{
		Path:   python,
		Args:   b.Args(req),
		Dir:    req.ProjectDir,
		Env:    i.env,
		Stdout: i.stdout,
		Stderr: i.stderr,
	}
}

// Invoke checks the entry module and runs the backend to completion. There
// is no retry and no timeout.
func (i *Invoker) Invoke(ctx context.Context, python string, b Backend, req Request) error {
	entry := req.EntryPath()
	info, err := os.Stat(entry)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entry)
	}

	res := i.runner.Run(ctx, i.Command(python, b, req))
	if res.Error != nil {
		return &CompilationError{Backend: b.Name(), Cause: res.Error}
	}
	if !res.ExitCode.IsSuccess() {
		return &CompilationError{Backend: b.Name(), ExitCode: res.ExitCode, Cause: res.Err()}
	}
	return nil
}
