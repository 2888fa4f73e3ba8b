// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/captaincmd/pybuild/internal/artifact"
	"github.com/captaincmd/pybuild/internal/manifest"
	"github.com/captaincmd/pybuild/internal/platform"
)

const (
	// Nuitka compiles Python ahead of time into a standalone folder.
	Nuitka Name = manifest.BackendNuitka
	// PyInstaller bundles the interpreter and bytecode into a folder.
	PyInstaller Name = manifest.BackendPyInstaller
)

// ErrUnknownBackend is the sentinel error wrapped by UnknownBackendError.
var ErrUnknownBackend = errors.New("unknown backend")

type (
	// Name identifies a backend on the command line and in the manifest.
	Name string

	// UnknownBackendError is returned by Lookup for unsupported names.
	UnknownBackendError struct {
		Name string
	}

	// Request carries what a backend needs to build its command line.
	Request struct {
		// ProjectDir is the directory the backend runs in.
		ProjectDir string
		Manifest   *manifest.Manifest
		Platform   platform.OS
	}

	// Backend is one native-compiler adapter.
	Backend interface {
		// Name identifies the backend.
		Name() Name
		// Module is the importable module probed before building.
		Module() string
		// InstallPackages are handed to pip when Module is missing.
		InstallPackages() []string
		// Args is the interpreter argument list, entry module last.
		Args(req Request) []string
		// ScratchPaths are project-relative paths the backend may leave
		// behind outside the output root.
		ScratchPaths(req Request) []string
		// Locators probe the output root for the backend's native output,
		// bundle form first.
		Locators(req Request) []artifact.Locator
	}
)

// Error implements the error interface.
func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend %q (expected one of %s)", e.Name, strings.Join(Names(), ", "))
}

// Unwrap returns ErrUnknownBackend for errors.Is.
func (e *UnknownBackendError) Unwrap() error { return ErrUnknownBackend }

// String returns the backend name.
func (n Name) String() string { return string(n) }

var registry = map[Name]Backend{
	Nuitka:      nuitkaBackend{},
	PyInstaller: pyinstallerBackend{},
}

// Lookup returns the backend registered under name (case-insensitive).
func Lookup(name string) (Backend, error) {
	b, ok := registry[Name(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return nil, &UnknownBackendError{Name: name}
	}
	return b, nil
}

// Names returns the registered backend names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, string(n))
	}
	slices.Sort(names)
	return names
}

// All returns every registered backend, sorted by name.
func All() []Backend {
	out := make([]Backend, 0, len(registry))
	for _, n := range Names() {
		out = append(out, registry[Name(n)])
	}
	return out
}

// OutputDir is the output root as passed on the command line.
func (r Request) OutputDir() string { return nativePath(r.Manifest.OutputDir) }

// WorkDir is the scratch directory as passed on the command line.
func (r Request) WorkDir() string { return nativePath(r.Manifest.WorkDir) }

// OutputRoot is the absolute output root.
func (r Request) OutputRoot() string { return r.Manifest.OutputRoot(r.ProjectDir) }

// EntryPath is the absolute entry module.
func (r Request) EntryPath() string { return r.Manifest.Path(r.ProjectDir, r.Manifest.Entry) }

// icon returns the icon argument when the host supports icons and one is
// configured.
func (r Request) icon() (string, bool) {
	if r.Manifest.Icon == "" || !r.Platform.SupportsIcons() {
		return "", false
	}
	return nativePath(r.Manifest.Icon), true
}

func nativePath(p string) string {
	return filepath.Clean(filepath.FromSlash(p))
}
