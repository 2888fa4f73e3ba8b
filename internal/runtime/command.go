// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"io"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

type (
	// Command describes one blocking subprocess invocation.
	Command struct {
		// Path is the executable, resolved through PATH when it has no separator.
		Path string
		// Args are the arguments after Path.
		Args []string
		// Dir is the working directory; empty means the current directory.
		Dir string
		// Env entries are appended to the inherited environment, so they win.
		Env []string
		// Stdout and Stderr receive the process output; nil discards it.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Runner executes commands to completion.
	Runner interface {
		Run(ctx context.Context, cmd Command) *Result
	}
)

// Argv returns Path followed by Args.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String renders the command line as a POSIX shell would need it typed,
// quoting only the words that need it.
func (c Command) String() string {
	words := c.Argv()
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, quoteWord(w))
	}
	return strings.Join(quoted, " ")
}

// quoteWord quotes one word. For "--flag=value" words only the value is
// quoted, since the quoter would otherwise wrap every flag because of '='.
func quoteWord(w string) string {
	if flag, value, ok := strings.Cut(w, "="); ok && strings.HasPrefix(flag, "-") && isPlainWord(flag) {
		return flag + "=" + quoteValue(value)
	}
	return quoteValue(w)
}

func isPlainWord(w string) bool {
	q, err := syntax.Quote(w, syntax.LangPOSIX)
	return err == nil && q == w
}

func quoteValue(w string) string {
	q, err := syntax.Quote(w, syntax.LangPOSIX)
	if err != nil {
		// Words with NUL bytes cannot be quoted; show them raw.
		return w
	}
	return q
}
