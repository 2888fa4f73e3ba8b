// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/captaincmd/pybuild/internal/issue"
	"github.com/captaincmd/pybuild/pkg/cueutil"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override manifest keys,
// e.g. PYBUILD_BACKEND or PYBUILD_INCLUDE_PACKAGES.
const EnvPrefix = "PYBUILD"

//go:embed manifest_schema.cue
var manifestSchema string

// Schema returns the embedded CUE schema.
func Schema() string { return manifestSchema }

// Locate resolves which manifest file applies. An explicit path must exist;
// otherwise pybuild.cue in projectDir is used when present. An empty result
// with a nil error means the defaults apply.
func Locate(opts LoadOptions) (string, error) {
	if opts.ManifestPath != "" {
		path := opts.ManifestPath
		if !filepath.IsAbs(path) && opts.ProjectDir != "" {
			path = filepath.Join(opts.ProjectDir, path)
		}
		if !fileExists(path) {
			return "", issue.NewErrorContext().
				WithOperation("load manifest").
				WithResource(path).
				WithSuggestion("Verify the --manifest path is correct").
				WithSuggestion("Run 'pybuild manifest init' to create a default manifest").
				WithIssue(issue.ManifestLoadFailedId).
				Wrap(fmt.Errorf("manifest file not found: %s", path)).
				BuildError()
		}
		return path, nil
	}

	path := filepath.Join(opts.ProjectDir, FileName)
	if fileExists(path) {
		return path, nil
	}
	return "", nil
}

// loadWithOptions performs option-driven manifest loading.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Manifest, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load manifest canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := Locate(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load manifest").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the schema shown by 'pybuild manifest show --schema'").
				WithIssue(issue.ManifestLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, "", fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		id := issue.ManifestLoadFailedId
		if errors.Is(err, ErrUnknownBackend) {
			id = issue.UnknownBackendId
		}
		return nil, "", issue.NewErrorContext().
			WithOperation("validate manifest").
			WithResource(resolvedPath).
			WithSuggestion("Keep output_dir, work_dir and clean entries relative to the project directory").
			WithSuggestion("Use dotted Python names in include and exclude lists").
			WithIssue(id).
			Wrap(err).
			BuildError()
	}

	return &m, resolvedPath, nil
}

// setDefaults registers every manifest key so that environment overrides
// and Unmarshal see them even when no file is loaded.
func setDefaults(v *viper.Viper, d *Manifest) {
	v.SetDefault("entry", d.Entry)
	v.SetDefault("app_name", d.AppName)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("python", d.Python)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("work_dir", d.WorkDir)
	v.SetDefault("canonical_name", d.CanonicalName)
	v.SetDefault("config_template", d.ConfigTemplate)
	v.SetDefault("config_name", d.ConfigName)
	v.SetDefault("env_file", d.EnvFile)
	v.SetDefault("icon", d.Icon)
	v.SetDefault("include.packages", d.Include.Packages)
	v.SetDefault("include.modules", d.Include.Modules)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("clean", d.Clean)
}

// loadCUEIntoViper validates a CUE file against #Manifest and merges its
// contents into Viper, keeping defaults for fields the file omits.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest file: %w", err)
	}

	unified, err := cueutil.Unify(manifestSchema, data, "#Manifest", path)
	if err != nil {
		return err
	}

	var values map[string]any
	if err := unified.Decode(&values); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("failed to merge manifest: %w", err)
	}

	return nil
}

// WriteDefault writes the default manifest to path. An existing file is
// left untouched unless force is set; the returned bool reports whether a
// file was written.
func WriteDefault(path string, force bool) (bool, error) {
	if !force && fileExists(path) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create manifest directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write manifest file: %w", err)
	}

	return true, nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
