// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/captaincmd/pybuild/internal/platform"
)

// identifierPattern mirrors #Identifier in the schema so that values
// arriving through environment overrides get the same check.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate checks the constraints CUE cannot express: path containment,
// cross-field relations and list uniqueness. All problems are reported
// together.
func (m *Manifest) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if m.Entry == "" {
		add(fmt.Errorf("entry: must not be empty"))
	} else {
		add(checkContained("entry", m.Entry))
	}

	if !IsBackend(m.Backend) {
		add(fmt.Errorf("backend: %w %q (expected one of %s)", ErrUnknownBackend, m.Backend, strings.Join(Backends(), ", ")))
	}

	add(checkName("app_name", m.AppName))
	add(checkName("canonical_name", m.CanonicalName))
	add(checkName("config_name", m.ConfigName))

	if m.ConfigTemplate == "" {
		add(fmt.Errorf("config_template: must not be empty"))
	}

	add(checkOwnedDir("output_dir", m.OutputDir))
	add(checkOwnedDir("work_dir", m.WorkDir))
	if m.OutputDir != "" && m.WorkDir != "" {
		out := filepath.Clean(filepath.FromSlash(m.OutputDir))
		work := filepath.Clean(filepath.FromSlash(m.WorkDir))
		if out == work || isWithin(out, work) {
			add(fmt.Errorf("work_dir: %q must be outside output_dir %q", m.WorkDir, m.OutputDir))
		}
	}

	add(checkIdentifiers("include.packages", m.Include.Packages))
	add(checkIdentifiers("include.modules", m.Include.Modules))
	add(checkIdentifiers("exclude", m.Exclude))

	seen := make(map[string]int, len(m.Clean))
	for i, p := range m.Clean {
		field := fmt.Sprintf("clean[%d]", i)
		if err := checkOwnedDir(field, p); err != nil {
			add(err)
			continue
		}
		key := filepath.Clean(filepath.FromSlash(p))
		if first, ok := seen[key]; ok {
			add(fmt.Errorf("%s: duplicate path %q (same as clean[%d])", field, p, first))
			continue
		}
		seen[key] = i
	}

	if len(errs) > 0 {
		return &InvalidManifestError{FieldErrors: errs}
	}
	return nil
}

// checkContained rejects absolute paths, paths that climb out of the
// project directory and paths no filesystem accepts.
func checkContained(field, p string) error {
	if strings.IndexFunc(p, unicode.IsControl) >= 0 {
		return fmt.Errorf("%s: %q must not contain control characters", field, p)
	}
	native := filepath.FromSlash(p)
	if filepath.IsAbs(native) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%s: %q must be relative to the project directory", field, p)
	}
	clean := filepath.Clean(native)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s: %q must not escape the project directory", field, p)
	}
	return nil
}

// checkOwnedDir validates a directory the pipeline creates or deletes.
func checkOwnedDir(field, p string) error {
	if p == "" {
		return fmt.Errorf("%s: must not be empty", field)
	}
	if err := checkContained(field, p); err != nil {
		return err
	}
	if filepath.Clean(filepath.FromSlash(p)) == "." {
		return fmt.Errorf("%s: %q must not be the project directory itself", field, p)
	}
	return nil
}

// checkName validates a bare file name used on every host platform.
func checkName(field, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%s: must not be empty", field)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%s: %q must not contain path separators", field, name)
	case name == "." || name == "..":
		return fmt.Errorf("%s: %q is not a valid name", field, name)
	case platform.IsWindowsReservedName(name):
		return fmt.Errorf("%s: %q is a reserved name on Windows", field, name)
	}
	return nil
}

func checkIdentifiers(field string, names []string) error {
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("%s[%d]: %q is not a dotted Python name", field, i, name)
		}
		if seen[name] {
			return fmt.Errorf("%s[%d]: duplicate entry %q", field, i, name)
		}
		seen[name] = true
	}
	return nil
}

// isWithin reports whether child lies below parent. Both must be clean.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
