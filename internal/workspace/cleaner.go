// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

type (
	// Failure records a path that could not be removed.
	Failure struct {
		Path string
		Err  error
	}

	// Report summarizes a Clean call.
	Report struct {
		Removed []string
		Missing []string
		Failed  []Failure
	}

	// Cleaner deletes build leftovers. Failures are logged and reported but
	// never abort the run.
	Cleaner struct {
		logger *log.Logger
	}
)

// OK reports whether every path is gone.
func (r *Report) OK() bool { return len(r.Failed) == 0 }

// NewCleaner creates a Cleaner logging to logger (discarded when nil).
func NewCleaner(logger *log.Logger) *Cleaner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Cleaner{logger: logger}
}

// Clean removes every path, files and directories alike. Missing paths are
// not errors. Duplicate entries are visited once.
func (c *Cleaner) Clean(ctx context.Context, paths []string) *Report {
	report := &Report{}
	seen := make(map[string]bool, len(paths))

	for _, p := range paths {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, Failure{Path: p, Err: ctx.Err()})
			continue
		}

		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true

		if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("nothing to clean", "path", p)
			report.Missing = append(report.Missing, p)
			continue
		}

		if err := removeAll(p); err != nil {
			c.logger.Warn("failed to remove", "path", p, "err", err)
			report.Failed = append(report.Failed, Failure{Path: p, Err: err})
			continue
		}

		c.logger.Debug("removed", "path", p)
		report.Removed = append(report.Removed, p)
	}

	return report
}

// Prepare creates root and its parents.
func (c *Cleaner) Prepare(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create output root %s: %w", root, err)
	}
	return nil
}

// removeAll retries once after making the tree writable, which is needed on
// Windows for read-only files left behind by the compilers.
func removeAll(p string) error {
	err := os.RemoveAll(p)
	if err == nil {
		return nil
	}

	_ = filepath.WalkDir(p, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		mode := fs.FileMode(0o600)
		if d.IsDir() {
			mode = 0o700
		}
		_ = os.Chmod(path, mode)
		return nil
	})

	if retryErr := os.RemoveAll(p); retryErr != nil {
		return retryErr
	}
	return nil
}
