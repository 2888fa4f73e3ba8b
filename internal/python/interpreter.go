// SPDX-License-Identifier: MPL-2.0

package python

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/captaincmd/pybuild/internal/platform"
)

// ErrInterpreterNotFound is the sentinel error wrapped by InterpreterNotFoundError.
var ErrInterpreterNotFound = errors.New("python interpreter not found")

type (
	// LookPathFunc resolves an executable name the way exec.LookPath does.
	LookPathFunc func(file string) (string, error)

	// InterpreterNotFoundError lists what was tried.
	InterpreterNotFoundError struct {
		Tried []string
	}
)

// Error implements the error interface.
func (e *InterpreterNotFoundError) Error() string {
	return fmt.Sprintf("python interpreter not found (tried %s)", strings.Join(e.Tried, ", "))
}

// Unwrap returns ErrInterpreterNotFound for errors.Is.
func (e *InterpreterNotFoundError) Unwrap() error { return ErrInterpreterNotFound }

// Candidates returns the executable names probed on PATH for host o.
func Candidates(o platform.OS) []string {
	if o == platform.Windows {
		return []string{"python", "python3", "py"}
	}
	return []string{"python3", "python"}
}

// Resolve returns the interpreter to use. A configured value wins and may be
// a path or a bare name; otherwise the platform candidates are looked up on
// PATH. lookPath defaults to exec.LookPath.
func Resolve(configured string, o platform.OS, lookPath LookPathFunc) (string, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if configured != "" {
		if strings.ContainsAny(configured, `/\`) {
			info, err := os.Stat(configured)
			if err != nil || info.IsDir() {
				return "", &InterpreterNotFoundError{Tried: []string{configured}}
			}
			return configured, nil
		}
		path, err := lookPath(configured)
		if err != nil {
			return "", &InterpreterNotFoundError{Tried: []string{configured}}
		}
		return path, nil
	}

	candidates := Candidates(o)
	for _, name := range candidates {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", &InterpreterNotFoundError{Tried: candidates}
}
