// SPDX-License-Identifier: MPL-2.0

package python

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/captaincmd/pybuild/internal/runtime"
)

var (
	// ErrModuleMissing is returned by Ensure when the module is absent and
	// installation is not allowed.
	ErrModuleMissing = errors.New("python module not installed")
	// ErrInstallFailed is the sentinel error wrapped by InstallError.
	ErrInstallFailed = errors.New("pip install failed")
)

type (
	// InstallError reports a failed pip invocation.
	InstallError struct {
		Packages []string
		Cause    error
	}

	// Ensurer checks for and installs Python modules using one interpreter.
	Ensurer struct {
		runner runtime.Runner
		python string
		env    []string
		stdout io.Writer
		stderr io.Writer
	}

	// EnsurerOption configures an Ensurer.
	EnsurerOption func(*Ensurer)
)

// Error implements the error interface.
func (e *InstallError) Error() string {
	return fmt.Sprintf("pip install %s: %v", strings.Join(e.Packages, " "), e.Cause)
}

// Unwrap exposes both ErrInstallFailed and the cause.
func (e *InstallError) Unwrap() []error { return []error{ErrInstallFailed, e.Cause} }

// WithEnv adds environment entries to every child process.
func WithEnv(env []string) EnsurerOption {
	return func(e *Ensurer) { e.env = env }
}

// WithOutput sets where pip output goes.
func WithOutput(stdout, stderr io.Writer) EnsurerOption {
	return func(e *Ensurer) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// NewEnsurer creates an Ensurer running python through runner.
func NewEnsurer(runner runtime.Runner, python string, opts ...EnsurerOption) *Ensurer {
	e := &Ensurer{runner: runner, python: python}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasModule reports whether `python -c "import <module>"` succeeds.
// An error is returned only when the interpreter could not be run.
func (e *Ensurer) HasModule(ctx context.Context, module string) (bool, error) {
	res := e.runner.Run(ctx, runtime.Command{
		Path: e.python,
		Args: []string{"-c", "import " + module},
		Env:  e.env,
	})
	if res.Error != nil {
		return false, fmt.Errorf("failed to probe module %s: %w", module, res.Error)
	}
	return res.Success(), nil
}

// InstallCommand is the pip command Install runs.
func (e *Ensurer) InstallCommand(packages []string) runtime.Command {
	args := append([]string{"-m", "pip", "install"}, packages...)
	return runtime.Command{
		Path:   e.python,
		Args:   args,
		Env:    e.env,
		Stdout: e.stdout,
		Stderr: e.stderr,
	}
}

// Install runs pip synchronously with its output passed through.
func (e *Ensurer) Install(ctx context.Context, packages []string) error {
	if err := e.runner.Run(ctx, e.InstallCommand(packages)).Err(); err != nil {
		return &InstallError{Packages: packages, Cause: err}
	}
	return nil
}

// Ensure makes module importable. It returns true when an installation took
// place. With allowInstall unset a missing module yields ErrModuleMissing.
func (e *Ensurer) Ensure(ctx context.Context, module string, packages []string, allowInstall bool) (bool, error) {
	ok, err := e.HasModule(ctx, module)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if !allowInstall {
		return false, fmt.Errorf("%w: %s", ErrModuleMissing, module)
	}
	if err := e.Install(ctx, packages); err != nil {
		return false, err
	}
	return true, nil
}
