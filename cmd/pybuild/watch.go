// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/captaincmd/pybuild/internal/backend"
	"github.com/captaincmd/pybuild/internal/watch"
)

// newWatchCommand creates the `pybuild watch` command.
func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var (
		backendName string
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever sources change",
		Long: `Build once, then watch the project and rebuild after Python sources, the
config template, the env file or the manifest change. Build output and
backend scratch folders are ignored. A failed build does not stop watching;
fix the problem and save again. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), app, flags, backendName, debounce)
		},
	}

	cmd.Flags().StringVarP(&backendName, "backend", "b", "", "backend to use: "+strings.Join(backend.Names(), " or ")+" (default from manifest)")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before rebuilding (default 500ms)")
	_ = cmd.RegisterFlagCompletionFunc("backend", completeBackends)

	return cmd
}

// runWatch builds once and then rebuilds on change until ctx is cancelled.
// The watcher runs one callback at a time, so rebuilds never overlap.
func runWatch(ctx context.Context, app *App, flags *rootFlagValues, backendName string, debounce time.Duration) error {
	p, err := app.loadProject(ctx, flags)
	if err != nil {
		return renderError(app.stderr, err, flags.verbose)
	}

	rebuild := func(ctx context.Context) {
		if _, buildErr := buildOnce(ctx, app, flags, backendName); buildErr != nil && ctx.Err() == nil {
			fmt.Fprintf(app.stderr, "%s Build failed; waiting for changes\n", WarningStyle.Render("!"))
		}
	}

	fmt.Fprintf(app.stdout, "%s Watch mode: initial build\n", VerboseHighlightStyle.Render("→"))
	rebuild(ctx)
	if ctx.Err() != nil {
		return nil
	}

	patterns, ignore := watch.ProjectPatterns(p.Dir, p.Manifest, p.ManifestPath)
	w, err := watch.New(watch.Config{
		Patterns: patterns,
		Ignore:   ignore,
		Debounce: debounce,
		BaseDir:  p.Dir,
		Logger:   app.newLogger(flags.verbose).WithPrefix("pybuild/watch"),
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "\n%s Detected %d change(s): %s\n",
				VerboseHighlightStyle.Render("→"), len(changed), strings.Join(changed, ", "))
			rebuild(ctx)
			fmt.Fprintf(app.stdout, "\n%s Watching for changes...\n", VerboseHighlightStyle.Render("→"))
			return nil
		},
	})
	if err != nil {
		return renderError(app.stderr, fmt.Errorf("failed to start watcher: %w", err), flags.verbose)
	}

	fmt.Fprintf(app.stdout, "\n%s Watching %s for changes (Ctrl+C to stop)...\n", VerboseHighlightStyle.Render("→"), p.Dir)
	if err := w.Run(ctx); err != nil {
		return renderError(app.stderr, err, flags.verbose)
	}
	return nil
}
