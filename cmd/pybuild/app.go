// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/captaincmd/pybuild/internal/backend"
	"github.com/captaincmd/pybuild/internal/issue"
	"github.com/captaincmd/pybuild/internal/manifest"
	"github.com/captaincmd/pybuild/internal/metrics"
	"github.com/captaincmd/pybuild/internal/pipeline"
	"github.com/captaincmd/pybuild/internal/platform"
	"github.com/captaincmd/pybuild/internal/python"
	"github.com/captaincmd/pybuild/internal/runtime"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives an App and goes through it for manifests and builds.
	App struct {
		Manifests manifest.Provider
		runner    runtime.Runner
		lookPath  python.LookPathFunc
		platform  platform.OS
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Manifests manifest.Provider
		Runner    runtime.Runner
		LookPath  python.LookPathFunc
		// Platform overrides the host OS the build targets.
		Platform platform.OS
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// project is a loaded project directory.
	project struct {
		Dir          string
		Manifest     *manifest.Manifest
		ManifestPath string
	}

	// session holds what one command invocation needs to run the pipeline.
	session struct {
		logger   *log.Logger
		pipeline *pipeline.Pipeline
		recorder *metrics.PrometheusRecorder
	}
)

// NewApp creates an App, filling in production defaults.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Manifests == nil {
		deps.Manifests = manifest.NewProvider()
	}
	if deps.Runner == nil {
		deps.Runner = runtime.NewNativeRuntime()
	}
	if deps.Platform == "" {
		deps.Platform = platform.Host()
	}

	return &App{
		Manifests: deps.Manifests,
		runner:    deps.Runner,
		lookPath:  deps.LookPath,
		platform:  deps.Platform,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

// newLogger creates the run logger. Verbose mode lowers the level to debug
// and adds timestamps.
func (a *App) newLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "pybuild",
		ReportTimestamp: verbose,
		TimeFormat:      time.TimeOnly,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newSession creates a logger and a pipeline for one command invocation.
// A Prometheus recorder is attached when --metrics-file is set.
func (a *App) newSession(flags *rootFlagValues) *session {
	s := &session{logger: a.newLogger(flags.verbose)}

	opts := []pipeline.Option{
		pipeline.WithRunner(a.runner),
		pipeline.WithLogger(s.logger),
		pipeline.WithOutput(a.stdout, a.stderr),
		pipeline.WithLookPath(a.lookPath),
	}
	if flags.metricsFile != "" {
		s.recorder = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		opts = append(opts, pipeline.WithRecorder(s.recorder))
	}

	s.pipeline = pipeline.New(opts...)
	return s
}

// flushMetrics writes the metrics textfile. Failures are logged only.
func (s *session) flushMetrics(path string) {
	if s.recorder == nil || path == "" {
		return
	}
	if err := s.recorder.WriteTextfile(path); err != nil {
		s.logger.Warn("failed to write metrics", "path", path, "err", err)
		return
	}
	s.logger.Debug("metrics written", "path", path)
}

// loadProject resolves the project directory and loads its manifest.
func (a *App) loadProject(ctx context.Context, flags *rootFlagValues) (*project, error) {
	abs, err := projectDir(flags)
	if err != nil {
		return nil, err
	}

	m, path, err := a.Manifests.Load(ctx, manifest.LoadOptions{
		ProjectDir:   abs,
		ManifestPath: flags.manifestPath,
	})
	if err != nil {
		return nil, err
	}

	return &project{Dir: abs, Manifest: m, ManifestPath: path}, nil
}

// buildRequest turns a project into a pipeline request. An empty
// backendName selects the manifest's backend.
func (a *App) buildRequest(p *project, backendName string, flags *rootFlagValues) (pipeline.Request, error) {
	if backendName == "" {
		backendName = p.Manifest.Backend
	}
	b, err := backend.Lookup(backendName)
	if err != nil {
		return pipeline.Request{}, issue.NewErrorContext().
			WithOperation("select backend").
			WithResource(backendName).
			WithSuggestion(fmt.Sprintf("Use -b %s or -b %s", backend.Nuitka, backend.PyInstaller)).
			WithIssue(issue.UnknownBackendId).
			Wrap(err).
			BuildError()
	}

	return pipeline.Request{
		ProjectDir:  p.Dir,
		Manifest:    p.Manifest,
		Backend:     b,
		Platform:    a.platform,
		SkipInstall: flags.noInstall,
	}, nil
}
