// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// BackendNuitka selects the ahead-of-time compiler.
	// Defined locally to avoid coupling the manifest to internal/backend.
	BackendNuitka = "nuitka"
	// BackendPyInstaller selects the bundler.
	BackendPyInstaller = "pyinstaller"

	// FileName is the manifest file looked up in the project directory.
	FileName = "pybuild.cue"
)

var (
	// ErrInvalidManifest is the sentinel error wrapped by InvalidManifestError.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrUnknownBackend is returned for backend names outside the supported set.
	ErrUnknownBackend = errors.New("unknown backend")
)

type (
	// IncludeSpec lists what must be force-included in the build.
	IncludeSpec struct {
		// Packages are included with all their submodules.
		Packages []string `json:"packages" yaml:"packages" mapstructure:"packages"`
		// Modules are included individually.
		Modules []string `json:"modules" yaml:"modules" mapstructure:"modules"`
	}

	// Manifest is the declared build configuration shared by both backends.
	Manifest struct {
		Entry          string      `json:"entry" yaml:"entry" mapstructure:"entry"`
		AppName        string      `json:"app_name" yaml:"app_name" mapstructure:"app_name"`
		Backend        string      `json:"backend" yaml:"backend" mapstructure:"backend"`
		Python         string      `json:"python,omitempty" yaml:"python,omitempty" mapstructure:"python"`
		OutputDir      string      `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
		WorkDir        string      `json:"work_dir" yaml:"work_dir" mapstructure:"work_dir"`
		CanonicalName  string      `json:"canonical_name" yaml:"canonical_name" mapstructure:"canonical_name"`
		ConfigTemplate string      `json:"config_template" yaml:"config_template" mapstructure:"config_template"`
		ConfigName     string      `json:"config_name" yaml:"config_name" mapstructure:"config_name"`
		EnvFile        string      `json:"env_file,omitempty" yaml:"env_file,omitempty" mapstructure:"env_file"`
		Icon           string      `json:"icon,omitempty" yaml:"icon,omitempty" mapstructure:"icon"`
		Include        IncludeSpec `json:"include" yaml:"include" mapstructure:"include"`
		Exclude        []string    `json:"exclude" yaml:"exclude" mapstructure:"exclude"`
		Clean          []string    `json:"clean,omitempty" yaml:"clean,omitempty" mapstructure:"clean"`
	}

	// InvalidManifestError collects every field-level problem found by Validate.
	InvalidManifestError struct {
		FieldErrors []error
	}
)

// Error implements the error interface.
func (e *InvalidManifestError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid manifest: %s", strings.Join(msgs, "; "))
}

// Unwrap exposes ErrInvalidManifest and every field error to errors.Is.
func (e *InvalidManifestError) Unwrap() []error {
	return append([]error{ErrInvalidManifest}, e.FieldErrors...)
}

// Backends returns the supported backend names.
func Backends() []string {
	return []string{BackendNuitka, BackendPyInstaller}
}

// IsBackend reports whether name is a supported backend.
func IsBackend(name string) bool {
	return name == BackendNuitka || name == BackendPyInstaller
}

// EntryStem is the entry file name without directory and extension; Nuitka
// names its output folder after it.
func (m *Manifest) EntryStem() string {
	base := filepath.Base(filepath.FromSlash(m.Entry))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Path resolves a manifest-relative path against the project directory.
// Absolute paths are returned unchanged.
func (m *Manifest) Path(projectDir, rel string) string {
	p := filepath.FromSlash(rel)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

// OutputRoot is the absolute output root for projectDir.
func (m *Manifest) OutputRoot(projectDir string) string {
	return m.Path(projectDir, m.OutputDir)
}

// WorkRoot is the absolute scratch directory for projectDir.
func (m *Manifest) WorkRoot(projectDir string) string {
	return m.Path(projectDir, m.WorkDir)
}
