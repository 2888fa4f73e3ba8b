// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ErrTemplateNotFound is returned by Seed when the template file is missing.
var ErrTemplateNotFound = errors.New("config template not found")

// SeedResult describes a seeded configuration file.
type SeedResult struct {
	// Path is the written configuration file.
	Path string
	// ParseError is set when the template is not valid TOML. The file is
	// copied regardless.
	ParseError error
}

// Seed copies template into the artifact's config directory as name,
// preserving the template's permission bits and modification time.
func Seed(template string, a *Artifact, name string) (*SeedResult, error) {
	info, err := os.Stat(template)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, template)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config template: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config template %s is a directory", template)
	}

	data, err := os.ReadFile(template)
	if err != nil {
		return nil, fmt.Errorf("failed to read config template: %w", err)
	}

	result := &SeedResult{Path: filepath.Join(a.ConfigDir(), name)}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		result.ParseError = err
	}

	mode := info.Mode().Perm()
	if err := os.WriteFile(result.Path, data, mode); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", result.Path, err)
	}
	// WriteFile leaves an existing file's mode alone and applies the umask.
	if err := os.Chmod(result.Path, mode); err != nil {
		return nil, fmt.Errorf("failed to set mode on %s: %w", result.Path, err)
	}
	if err := os.Chtimes(result.Path, info.ModTime(), info.ModTime()); err != nil {
		return nil, fmt.Errorf("failed to set times on %s: %w", result.Path, err)
	}

	return result, nil
}
