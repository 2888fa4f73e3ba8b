// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FormFlat is a plain directory with the executable at its root.
	FormFlat Form = iota
	// FormBundle is a macOS .app bundle.
	FormBundle
)

type (
	// Form is the shape of a build artifact.
	Form int

	// Locator finds one candidate location of backend output.
	Locator interface {
		// Form is the shape of the candidate.
		Form() Form
		// Locate returns the candidate path and whether it exists.
		Locate() (string, bool)
	}

	// Artifact is a located or normalized build output.
	Artifact struct {
		Path string
		Form Form
	}

	pathLocator struct {
		path string
		form Form
	}
)

// String returns "flat" or "bundle".
func (f Form) String() string {
	switch f {
	case FormFlat:
		return "flat"
	case FormBundle:
		return "bundle"
	default:
		return fmt.Sprintf("Form(%d)", int(f))
	}
}

// Suffix is the directory suffix of the canonical artifact.
func (f Form) Suffix() string {
	if f == FormBundle {
		return ".app"
	}
	return ".dist"
}

// BundleAt returns a Locator for an application bundle at path.
func BundleAt(path string) Locator { return &pathLocator{path: path, form: FormBundle} }

// FlatAt returns a Locator for a flat output directory at path.
func FlatAt(path string) Locator { return &pathLocator{path: path, form: FormFlat} }

func (l *pathLocator) Form() Form { return l.form }

func (l *pathLocator) Locate() (string, bool) {
	info, err := os.Stat(l.path)
	if err != nil || !info.IsDir() {
		return l.path, false
	}
	return l.path, true
}

// CanonicalPath is where an artifact of form f lives after normalization.
func CanonicalPath(root, name string, f Form) string {
	return filepath.Join(root, name+f.Suffix())
}

// ExpectedConfigDir is where the packaged executable of form f at path reads
// its configuration from when the backend produced the usual layout: the
// artifact root for flat output and Contents/MacOS for bundles.
func ExpectedConfigDir(path string, f Form) string {
	if f == FormBundle {
		return filepath.Join(path, "Contents", "MacOS")
	}
	return path
}

// ConfigDir is ExpectedConfigDir for an existing artifact. A bundle without
// Contents/MacOS falls back to the bundle root.
func (a *Artifact) ConfigDir() string {
	dir := ExpectedConfigDir(a.Path, a.Form)
	if dir == a.Path {
		return dir
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return a.Path
}
