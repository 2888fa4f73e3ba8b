// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// NativeRuntime runs commands as host processes.
type NativeRuntime struct{}

// NewNativeRuntime creates a new native runtime.
func NewNativeRuntime() *NativeRuntime {
	return &NativeRuntime{}
}

// Run starts cmd and blocks until it exits. There is no timeout: a hung
// process blocks until ctx is cancelled.
func (r *NativeRuntime) Run(ctx context.Context, cmd Command) *Result {
	if cmd.Path == "" {
		return NewErrorResult(1, errors.New("no executable given"))
	}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout = writerOrDiscard(cmd.Stdout)
	c.Stderr = writerOrDiscard(cmd.Stderr)

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return NewExitCodeResult(ExitCode(exitErr.ExitCode()))
		}
		if ctx.Err() != nil {
			return NewErrorResult(1, fmt.Errorf("%s interrupted: %w", cmd.Path, ctx.Err()))
		}
		return NewErrorResult(1, fmt.Errorf("failed to execute %s: %w", cmd.Path, err))
	}

	return NewSuccessResult()
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
