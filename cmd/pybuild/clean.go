// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCleanCommand creates the `pybuild clean` command.
func newCleanCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove build output and backend scratch folders",
		Long: `Remove the output root, the work dir, every backend's scratch folders,
earlier main.dist/main.app in the project directory and the manifest's extra
clean paths, then recreate an empty output root.

Paths that cannot be removed are reported; the command still succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.newSession(flags)

			p, err := app.loadProject(cmd.Context(), flags)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}
			req, err := app.buildRequest(p, "", flags)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}

			report, err := s.pipeline.Clean(cmd.Context(), req)
			if err != nil {
				return renderError(app.stderr, err, flags.verbose)
			}

			for _, path := range report.Removed {
				fmt.Fprintf(app.stdout, "%s removed %s\n", SuccessStyle.Render("✓"), path)
			}
			for _, f := range report.Failed {
				fmt.Fprintf(app.stderr, "%s could not remove %s: %v\n", WarningStyle.Render("!"), f.Path, f.Err)
			}
			if len(report.Removed) == 0 && len(report.Failed) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("nothing to clean"))
			}
			return nil
		},
	}
}
