// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

// Normalization describes what Normalize did.
type Normalization struct {
	// Artifact is the normalized output, nil when nothing was located.
	Artifact *Artifact
	// Source is the path the backend produced.
	Source string
	// Moved is false when the output already had its canonical name.
	Moved bool
	// Replaced is true when an earlier artifact at the target was removed.
	Replaced bool
	// Pruned lists other located candidates removed so that the root holds
	// a single artifact.
	Pruned []string
}

// Normalize moves the first existing candidate to its canonical path under
// root. Locators are probed in order; any file or directory already at the
// target is removed first. When no candidate exists the result has a nil
// Artifact and the error is nil.
func Normalize(root, name string, locators []Locator) (*Normalization, error) {
	result := &Normalization{}

	var chosen Locator
	for _, l := range locators {
		if _, ok := l.Locate(); ok {
			chosen = l
			break
		}
	}
	if chosen == nil {
		return result, nil
	}

	source, _ := chosen.Locate()
	target := CanonicalPath(root, name, chosen.Form())
	result.Source = source

	if !samePath(source, target) {
		if _, err := os.Lstat(target); err == nil {
			if err := os.RemoveAll(target); err != nil {
				return nil, fmt.Errorf("failed to remove previous artifact %s: %w", target, err)
			}
			result.Replaced = true
		}
		if err := os.Rename(source, target); err != nil {
			return nil, fmt.Errorf("failed to move %s to %s: %w", source, target, err)
		}
		result.Moved = true
	}

	for _, l := range locators {
		if l == chosen {
			continue
		}
		p, ok := l.Locate()
		if !ok || samePath(p, target) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return nil, fmt.Errorf("failed to remove leftover output %s: %w", p, err)
		}
		result.Pruned = append(result.Pruned, p)
	}

	result.Artifact = &Artifact{Path: target, Form: chosen.Form()}
	return result, nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
