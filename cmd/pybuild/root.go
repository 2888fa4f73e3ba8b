// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for pybuild.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/captaincmd/pybuild/internal/platform"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	dir          string
	manifestPath string
	verbose      bool
	metricsFile  string
	noInstall    bool
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "pybuild",
		Short: "Package a Python application with Nuitka or PyInstaller",
		Long: TitleStyle.Render("pybuild") + SubtitleStyle.Render(" - Package a Python application into a self-contained executable") + `

pybuild cleans previous output, makes sure the selected backend is
installed, runs it, and renames whatever it produced to a stable layout:

  <output_dir>/main.dist   flat folder (Linux, Windows)
  <output_dir>/main.app    application bundle (macOS)

The config template is then copied into the artifact as config.toml.
Running pybuild without a subcommand is the same as 'pybuild build'.

` + SubtitleStyle.Render("Examples:") + `
  pybuild                      Build with the manifest's backend
  pybuild build -b pyinstaller Build with PyInstaller
  pybuild plan                 Show what a build would do
  pybuild watch                Rebuild when sources change
  pybuild manifest init        Write a default pybuild.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, app, flags, "")
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.dir, "dir", "C", "", "project directory (default is the working directory)")
	pf.StringVar(&flags.manifestPath, "manifest", "", "manifest file (default is <dir>/pybuild.cue when present)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics for the run to this file")
	pf.BoolVar(&flags.noInstall, "no-install", false, "fail instead of installing a missing backend with pip")

	rootCmd.AddCommand(newBuildCommand(app, flags))
	rootCmd.AddCommand(newPlanCommand(app, flags))
	rootCmd.AddCommand(newCleanCommand(app, flags))
	rootCmd.AddCommand(newWatchCommand(app, flags))
	rootCmd.AddCommand(newManifestCommand(app, flags))
	rootCmd.AddCommand(newCompletionCommand())

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := platform.EnableUTF8Console(); err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+"failed to switch the console to UTF-8: "+err.Error())
	}

	app := NewApp(Dependencies{})
	return execute(context.Background(), NewRootCommand(app), os.Args[1:])
}

func execute(ctx context.Context, rootCmd *cobra.Command, args []string) int {
	rootCmd.SetArgs(args)

	if err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

// errorHandler leaves ExitErrors alone since the command already rendered
// them, and falls back to fang's styling for everything else.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
