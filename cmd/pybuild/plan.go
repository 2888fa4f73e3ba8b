// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/captaincmd/pybuild/internal/backend"
	"github.com/captaincmd/pybuild/internal/pipeline"
	"github.com/captaincmd/pybuild/internal/platform"
)

// newPlanCommand creates the `pybuild plan` command.
func newPlanCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var backendName, targetOS string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a build would do without running it",
		Long: `Resolve the manifest and print the paths a build would remove, the
backend command line, the output candidates with their canonical names and
where the config would be seeded. Nothing is executed or written.

--platform shows the plan another host would run, for example the macOS
bundle flags from a Linux machine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.newSession(flags)

			p, err := app.loadProject(cmd.Context(), flags)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}
			req, err := app.buildRequest(p, backendName, flags)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}
			if targetOS != "" {
				if req.Platform, err = platform.Parse(targetOS); err != nil {
					return fmt.Errorf("invalid --platform: %w", err)
				}
			}

			plan, err := s.pipeline.Plan(req)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}

			printPlan(app, p, plan)
			return nil
		},
	}

	cmd.Flags().StringVarP(&backendName, "backend", "b", "", "backend to use: "+strings.Join(backend.Names(), " or ")+" (default from manifest)")
	_ = cmd.RegisterFlagCompletionFunc("backend", completeBackends)
	cmd.Flags().StringVar(&targetOS, "platform", "", "plan for another host: linux, darwin (macos) or windows (default: this host)")
	_ = cmd.RegisterFlagCompletionFunc("platform", cobra.FixedCompletions(
		[]string{platform.Linux.String(), platform.Darwin.String(), platform.Windows.String()},
		cobra.ShellCompDirectiveNoFileComp,
	))

	return cmd
}

func printPlan(app *App, p *project, plan *pipeline.Plan) {
	out := app.stdout

	fmt.Fprintln(out, TitleStyle.Render("Build plan"))
	fmt.Fprintln(out)

	manifestPath := p.ManifestPath
	if manifestPath == "" {
		manifestPath = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("project"), p.Dir)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("manifest"), manifestPath)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("backend"), plan.Backend)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("platform"), plan.Platform)
	if plan.PythonErr != nil {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("python"), WarningStyle.Render(plan.PythonErr.Error()))
	} else {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("python"), plan.Python)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, SubtitleStyle.Render("Clean:"))
	for _, path := range plan.Clean {
		fmt.Fprintf(out, "  - %s\n", path)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, SubtitleStyle.Render("Install (when missing):"))
	fmt.Fprintf(out, "  %s\n", CmdStyle.Render(plan.Install.String()))

	fmt.Fprintln(out)
	fmt.Fprintln(out, SubtitleStyle.Render("Command:"))
	fmt.Fprintf(out, "  %s\n", CmdStyle.Render(plan.Command.String()))

	fmt.Fprintln(out)
	fmt.Fprintln(out, SubtitleStyle.Render("Output:"))
	for _, c := range plan.Candidates {
		fmt.Fprintf(out, "  %s -> %s (%s)\n", c.Path, c.Canonical, c.Form)
		fmt.Fprintf(out, "    seed %s -> %s\n", plan.Template, c.SeedPath)
	}
}
