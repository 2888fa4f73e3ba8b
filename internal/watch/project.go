// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"path/filepath"
	"strings"

	"github.com/captaincmd/pybuild/internal/manifest"
)

// backendScratch are directories the compilers write into while building.
var backendScratch = []string{
	"**/*.build/**",
	"**/*.dist/**",
	"**/*.app/**",
	"**/*.onefile-build/**",
	"dist/**",
}

// ProjectPatterns returns the watch and ignore patterns for a project: every
// Python source, the config template, the dotenv file and the manifest
// trigger a rebuild, while the output root, the work dir and backend scratch
// output are ignored so that a build never retriggers itself.
func ProjectPatterns(projectDir string, m *manifest.Manifest, manifestPath string) (patterns, ignore []string) {
	patterns = []string{"**/*.py"}
	for _, p := range []string{m.ConfigTemplate, m.EnvFile, manifestPath} {
		if rel, ok := relativeTo(projectDir, p); ok {
			patterns = append(patterns, rel)
		}
	}
	if manifestPath == "" {
		patterns = append(patterns, manifest.FileName)
	}

	for _, dir := range []string{m.OutputDir, m.WorkDir} {
		if rel, ok := relativeTo(projectDir, dir); ok {
			ignore = append(ignore, rel+"/**")
		}
	}
	ignore = append(ignore, backendScratch...)

	return patterns, ignore
}

// relativeTo turns p into a slash-separated glob relative to base. Paths
// outside base cannot be watched and report false.
func relativeTo(base, p string) (string, bool) {
	if p == "" {
		return "", false
	}
	native := filepath.FromSlash(p)
	if filepath.IsAbs(native) {
		rel, err := filepath.Rel(base, native)
		if err != nil {
			return "", false
		}
		native = rel
	}
	native = filepath.Clean(native)
	if native == "." || native == ".." || strings.HasPrefix(native, ".."+string(filepath.Separator)) {
		return "", false
	}
	return doublestarEscape(filepath.ToSlash(native)), true
}

// doublestarEscape escapes glob metacharacters in a literal path.
func doublestarEscape(p string) string {
	var b strings.Builder
	for _, r := range p {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
