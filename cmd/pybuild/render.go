// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/captaincmd/pybuild/internal/issue"
	"github.com/captaincmd/pybuild/internal/pipeline"
)

// issueStyle lets glamour pick dark, light or plain output for the terminal.
const issueStyle = "auto"

// exitCodeFor maps an error to the process exit code. Stage errors carry
// their own code; anything else that reaches a command before the build
// (manifest, backend selection) is an environment problem.
func exitCodeFor(err error) int {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		return se.ExitCode()
	}
	return pipeline.ExitEnvironment
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// get their suggestions, and the full cause chain in verbose mode.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError prints err with its catalog entry and returns the ExitError
// for the command to return.
func renderError(w io.Writer, err error, verbose bool) *ExitError {
	code := exitCodeFor(err)
	if pipeline.KindOf(err) == pipeline.KindInterrupted {
		fmt.Fprintln(w, WarningStyle.Render("! ")+"interrupted")
		return &ExitError{Code: code, Err: err}
	}

	fmt.Fprintln(w, ErrorStyle.Render("✗ ")+formatErrorForDisplay(err, verbose))

	if id := issue.IssueOf(err); id != 0 {
		if entry := issue.Get(id); entry != nil {
			rendered, renderErr := entry.Render(issueStyle)
			if renderErr != nil {
				fmt.Fprintln(w, VerboseStyle.Render("(failed to render help: "+renderErr.Error()+")"))
			} else {
				fmt.Fprint(w, rendered)
			}
		}
	}

	return &ExitError{Code: code, Err: err}
}

// renderWarnings repeats the run's warnings after the build summary.
func renderWarnings(w io.Writer, warnings []pipeline.Warning) {
	for _, warn := range warnings {
		fmt.Fprintln(w, WarningStyle.Render("! ")+warn.String())
	}
}
