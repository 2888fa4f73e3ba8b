// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/captaincmd/pybuild/internal/backend"
	"github.com/captaincmd/pybuild/internal/pipeline"
)

// newBuildCommand creates the `pybuild build` command.
func newBuildCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var backendName string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Clean, compile, normalize and seed the config",
		Long: `Run the full build pipeline:

  1. remove the output root, backend scratch folders and earlier artifacts
  2. install the backend with pip if the interpreter cannot import it
  3. run the backend on the entry module
  4. rename its output to main.dist or main.app
  5. copy the config template into the artifact

Exit status is 0 on success (warnings included), 1 when compilation fails
and 2 when the environment is not usable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, app, flags, backendName)
		},
	}

	cmd.Flags().StringVarP(&backendName, "backend", "b", "", "backend to use: "+strings.Join(backend.Names(), " or ")+" (default from manifest)")
	_ = cmd.RegisterFlagCompletionFunc("backend", completeBackends)

	return cmd
}

func completeBackends(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return backend.Names(), cobra.ShellCompDirectiveNoFileComp
}

// runBuild loads the project and runs one build, printing a summary.
func runBuild(cmd *cobra.Command, app *App, flags *rootFlagValues, backendName string) error {
	_, err := buildOnce(cmd.Context(), app, flags, backendName)
	return err
}

// buildOnce runs the pipeline and renders its outcome. Errors come back as
// *ExitError, already shown to the user.
func buildOnce(ctx context.Context, app *App, flags *rootFlagValues, backendName string) (*pipeline.Result, error) {
	s := app.newSession(flags)
	defer s.flushMetrics(flags.metricsFile)

	p, err := app.loadProject(ctx, flags)
	if err != nil {
		return nil, renderError(app.stderr, err, flags.verbose)
	}
	req, err := app.buildRequest(p, backendName, flags)
	if err != nil {
		return nil, renderError(app.stderr, err, flags.verbose)
	}

	res, err := s.pipeline.Run(ctx, req)
	if err != nil {
		return res, renderError(app.stderr, err, flags.verbose)
	}

	printBuildSummary(app, res)
	return res, nil
}

func printBuildSummary(app *App, res *pipeline.Result) {
	duration := res.Duration.Round(100 * time.Millisecond)

	if res.Artifact == nil {
		fmt.Fprintf(app.stdout, "%s %s finished in %s but produced no artifact\n",
			WarningStyle.Render("!"), res.Backend, duration)
	} else {
		fmt.Fprintf(app.stdout, "%s Built with %s in %s\n", SuccessStyle.Render("✓"), res.Backend, duration)
		fmt.Fprintf(app.stdout, "  %s %s\n", labelStyle.Render("artifact"), CmdStyle.Render(res.Artifact.Path))
		if res.Seed != nil {
			fmt.Fprintf(app.stdout, "  %s %s\n", labelStyle.Render("config"), CmdStyle.Render(res.Seed.Path))
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintf(app.stderr, "%s %d warning(s):\n", WarningStyle.Render("!"), len(res.Warnings))
		renderWarnings(app.stderr, res.Warnings)
	}
}
