// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/captaincmd/pybuild/internal/manifest"
)

const (
	formatCUE  = "cue"
	formatYAML = "yaml"
	formatJSON = "json"
)

// newManifestCommand creates the `pybuild manifest` command tree.
func newManifestCommand(app *App, flags *rootFlagValues) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect or create the build manifest",
		Long: `Inspect or create the build manifest.

The manifest is ` + manifest.FileName + ` in the project directory. Every key is
optional; missing keys take their defaults and ` + manifest.EnvPrefix + `_<KEY>
environment variables (for example ` + manifest.EnvPrefix + `_BACKEND) override both.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	manifestCmd.AddCommand(newManifestShowCommand(app, flags))
	manifestCmd.AddCommand(newManifestInitCommand(app, flags))
	manifestCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show which manifest file applies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(flags)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}
			path, err := manifest.Locate(manifest.LoadOptions{ProjectDir: dir, ManifestPath: flags.manifestPath})
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}
			if path == "" {
				fmt.Fprintf(app.stdout, "%s %s\n", filepath.Join(dir, manifest.FileName), SubtitleStyle.Render("(not found, using defaults)"))
				return nil
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return manifestCmd
}

func newManifestShowCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var (
		format string
		schema bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective manifest",
		Long: `Print the effective manifest after defaults, the manifest file and
environment overrides are merged. --schema prints the CUE schema instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schema {
				fmt.Fprint(app.stdout, manifest.Schema())
				return nil
			}

			p, err := app.loadProject(cmd.Context(), flags)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}

			out, err := encodeManifest(p.Manifest, format)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatCUE, "output format: cue, yaml or json")
	cmd.Flags().BoolVar(&schema, "schema", false, "print the manifest schema")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{formatCUE, formatYAML, formatJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func encodeManifest(m *manifest.Manifest, format string) (string, error) {
	switch format {
	case formatCUE:
		return manifest.GenerateCUE(m), nil
	case formatYAML:
		data, err := yaml.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("failed to encode manifest as YAML: %w", err)
		}
		return string(data), nil
	case formatJSON:
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode manifest as JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unknown format %q (expected cue, yaml or json)", format)
	}
}

func newManifestInitCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + manifest.FileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(flags)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}

			path := flags.manifestPath
			switch {
			case path == "":
				path = filepath.Join(dir, manifest.FileName)
			case !filepath.IsAbs(path):
				path = filepath.Join(dir, path)
			}

			written, err := manifest.WriteDefault(path, force)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}
			if !written {
				fmt.Fprintf(app.stderr, "%s %s already exists (use --force to overwrite)\n", WarningStyle.Render("!"), path)
				return &ExitError{Code: 1}
			}

			fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing manifest")
	return cmd
}

// projectDir resolves --dir to an absolute path.
func projectDir(flags *rootFlagValues) (string, error) {
	dir := flags.dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return abs, nil
}
