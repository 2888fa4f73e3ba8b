// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/captaincmd/pybuild/internal/artifact"
	"github.com/captaincmd/pybuild/internal/backend"
	"github.com/captaincmd/pybuild/internal/issue"
	"github.com/captaincmd/pybuild/internal/manifest"
	"github.com/captaincmd/pybuild/internal/metrics"
	"github.com/captaincmd/pybuild/internal/platform"
	"github.com/captaincmd/pybuild/internal/python"
	"github.com/captaincmd/pybuild/internal/runtime"
	"github.com/captaincmd/pybuild/internal/workspace"
)

const (
	StageClean     Stage = "clean"
	StageEnsure    Stage = "ensure"
	StageInvoke    Stage = "invoke"
	StageNormalize Stage = "normalize"
	StageSeed      Stage = "seed"
)

// ErrInvalidRequest is returned when a Request lacks a manifest or backend.
var ErrInvalidRequest = errors.New("invalid build request")

type (
	// Stage names one step of the pipeline.
	Stage string

	// Request describes one build.
	Request struct {
		// ProjectDir is the directory holding the entry module. Empty means
		// the working directory.
		ProjectDir string
		Manifest   *manifest.Manifest
		Backend    backend.Backend
		// Platform is the host the artifact is built for. Empty means the
		// current host.
		Platform platform.OS
		// SkipInstall turns a missing backend into an environment error
		// instead of installing it with pip.
		SkipInstall bool
	}

	// Warning is a non-fatal problem found during a run.
	Warning struct {
		Stage   Stage
		Issue   issue.Id
		Message string
	}

	// Result describes a finished run. It is returned alongside a
	// *StageError as far as the run got.
	Result struct {
		RunID   uuid.UUID
		Backend backend.Name
		// Python is the resolved interpreter.
		Python string
		// Cleaned is the cleaner's report.
		Cleaned *workspace.Report
		// Installed is true when the backend was installed with pip.
		Installed     bool
		Normalization *artifact.Normalization
		// Artifact is the normalized output, nil when none was located.
		Artifact *artifact.Artifact
		// Seed is nil when no configuration was seeded.
		Seed     *artifact.SeedResult
		Warnings []Warning
		Duration time.Duration
	}

	// Pipeline runs builds. The zero value is not usable; call New.
	Pipeline struct {
		runner   runtime.Runner
		logger   *log.Logger
		recorder metrics.Recorder
		stdout   io.Writer
		stderr   io.Writer
		lookPath python.LookPathFunc
		newID    func() uuid.UUID
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)
)

// String returns the stage name.
func (s Stage) String() string { return string(s) }

// String formats the warning for display.
func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Stage, w.Message) }

// WithRunner sets the process runner. Defaults to the native runtime.
func WithRunner(r runtime.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRecorder sets the metrics recorder. Defaults to metrics.NoopRecorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithOutput sets where pip and backend output goes. Defaults to the
// process's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// WithLookPath replaces exec.LookPath for interpreter resolution.
func WithLookPath(fn python.LookPathFunc) Option {
	return func(p *Pipeline) { p.lookPath = fn }
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		runner:   runtime.NewNativeRuntime(),
		logger:   log.New(io.Discard),
		recorder: metrics.NoopRecorder{},
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage in order. Cleanup, normalization and seeding
// problems become warnings; anything else stops the run with a *StageError.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	req, err = req.resolve()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	b := req.Backend
	res = &Result{RunID: p.newID(), Backend: b.Name()}
	logger := p.logger.With("run", res.RunID.String(), "backend", b.Name())

	defer func() {
		res.Duration = time.Since(start)
		p.recorder.ObserveBuildDuration(b.Name().String(), res.Duration)
		p.recorder.IncBuildOutcome(b.Name().String(), outcomeOf(res, err))
		if err != nil {
			logger.Error("build failed", "err", err, "duration", res.Duration.Round(time.Millisecond))
			return
		}
		logger.Info("build finished", "warnings", len(res.Warnings), "duration", res.Duration.Round(time.Millisecond))
	}()

	logger.Info("build started", "project", req.ProjectDir)

	p.clean(ctx, req, res, logger)
	if ctx.Err() != nil {
		return res, interrupted(StageClean, ctx.Err())
	}

	env := p.childEnv(req, res, logger)

	if err := p.ensure(ctx, req, res, env, logger); err != nil {
		return res, err
	}
	if err := p.invoke(ctx, req, res, env, logger); err != nil {
		return res, err
	}
	if err := p.normalize(req, res, logger); err != nil {
		return res, err
	}
	p.seed(req, res, logger)

	return res, nil
}

// Clean runs only the cleaning stage.
func (p *Pipeline) Clean(ctx context.Context, req Request) (*workspace.Report, error) {
	req, err := req.resolve()
	if err != nil {
		return nil, err
	}
	res := &Result{Backend: req.Backend.Name()}
	p.clean(ctx, req, res, p.logger)
	if ctx.Err() != nil {
		return res.Cleaned, interrupted(StageClean, ctx.Err())
	}
	return res.Cleaned, nil
}

func (p *Pipeline) clean(ctx context.Context, req Request, res *Result, logger *log.Logger) {
	start := time.Now()
	cleaner := workspace.NewCleaner(logger)

	res.Cleaned = cleaner.Clean(ctx, CleanTargets(req))
	for _, f := range res.Cleaned.Failed {
		res.warn(logger, StageClean, 0, "failed to remove %s: %v", f.Path, f.Err)
	}

	root := req.Manifest.OutputRoot(req.ProjectDir)
	if err := cleaner.Prepare(root); err != nil {
		res.warn(logger, StageClean, 0, "%v", err)
	}

	label := metrics.ResultSuccess
	if !res.Cleaned.OK() {
		label = metrics.ResultWarning
	}
	p.observe(StageClean, start, label)
	logger.Debug("workspace cleaned", "removed", len(res.Cleaned.Removed), "failed", len(res.Cleaned.Failed))
}

// childEnv builds the extra environment handed to pip and the backend.
func (p *Pipeline) childEnv(req Request, res *Result, logger *log.Logger) []string {
	env := make(map[string]string)
	if file := req.Manifest.EnvFile; file != "" {
		loaded, err := runtime.LoadEnvFile(env, file, req.ProjectDir)
		switch {
		case err != nil:
			res.warn(logger, StageEnsure, 0, "ignoring env file: %v", err)
		case loaded:
			logger.Debug("loaded env file", "path", file, "vars", len(env))
		}
	}
	return append(runtime.EnvList(env), platform.ChildEnv(req.Platform)...)
}

func (p *Pipeline) ensure(ctx context.Context, req Request, res *Result, env []string, logger *log.Logger) error {
	start := time.Now()
	b := req.Backend

	interp, err := python.Resolve(req.Manifest.Python, req.Platform, p.lookPath)
	if err != nil {
		p.observe(StageEnsure, start, metrics.ResultFatal)
		return environment(StageEnsure, issue.NewErrorContext().
			WithOperation("resolve Python interpreter").
			WithResource(req.Manifest.Python).
			WithSuggestions(
				"Install Python 3 and make sure it is on PATH",
				"Set 'python' in "+manifest.FileName+" or export "+manifest.EnvPrefix+"_PYTHON",
			).
			WithIssue(issue.InterpreterNotFoundId).
			Wrap(err).
			BuildError())
	}
	res.Python = interp
	logger.Debug("resolved interpreter", "python", interp)

	ensurer := python.NewEnsurer(p.runner, interp, python.WithEnv(env), python.WithOutput(p.stdout, p.stderr))
	installed, err := ensurer.Ensure(ctx, b.Module(), b.InstallPackages(), !req.SkipInstall)
	res.Installed = installed
	if installed {
		p.recorder.IncBackendInstall(b.Name().String(), true)
		logger.Info("backend installed", "cmd", ensurer.InstallCommand(b.InstallPackages()).String())
	}
	if err == nil {
		p.observe(StageEnsure, start, metrics.ResultSuccess)
		return nil
	}

	p.observe(StageEnsure, start, metrics.ResultFatal)
	if ctx.Err() != nil {
		return interrupted(StageEnsure, ctx.Err())
	}

	ec := issue.NewErrorContext().WithResource(b.Module()).Wrap(err)
	switch {
	case errors.Is(err, python.ErrModuleMissing):
		ec.WithOperation("find backend "+b.Name().String()).
			WithSuggestion("Run without --no-install to let pybuild install it").
			WithSuggestion(ensurer.InstallCommand(b.InstallPackages()).String()).
			WithIssue(issue.BackendNotInstalledId)
	case errors.Is(err, python.ErrInstallFailed):
		p.recorder.IncBackendInstall(b.Name().String(), false)
		ec.WithOperation("install backend "+b.Name().String()).
			WithSuggestions(
				"Check network access to the package index",
				"Check that pip is available: "+interp+" -m pip --version",
			).
			WithIssue(issue.BackendInstallFailedId)
	default:
		ec.WithOperation("run Python interpreter").
			WithResource(interp).
			WithIssue(issue.InterpreterNotFoundId)
	}
	return environment(StageEnsure, ec.BuildError())
}

func (p *Pipeline) invoke(ctx context.Context, req Request, res *Result, env []string, logger *log.Logger) error {
	start := time.Now()
	b := req.Backend
	breq := req.backendRequest()

	inv := backend.NewInvoker(p.runner, backend.WithEnv(env), backend.WithOutput(p.stdout, p.stderr))
	logger.Info("invoking backend", "cmd", inv.Command(res.Python, b, breq).String())

	err := inv.Invoke(ctx, res.Python, b, breq)
	if err == nil {
		p.observe(StageInvoke, start, metrics.ResultSuccess)
		return nil
	}

	p.observe(StageInvoke, start, metrics.ResultFatal)
	if ctx.Err() != nil {
		return interrupted(StageInvoke, ctx.Err())
	}

	if errors.Is(err, backend.ErrEntryNotFound) {
		return compilation(StageInvoke, issue.NewErrorContext().
			WithOperation("build").
			WithResource(req.Manifest.Entry).
			WithSuggestions(
				"Run pybuild from the project directory or pass -C <dir>",
				"Set 'entry' in "+manifest.FileName,
			).
			WithIssue(issue.EntryModuleNotFoundId).
			Wrap(err).
			BuildError())
	}
	return compilation(StageInvoke, issue.NewErrorContext().
		WithOperation("compile with "+b.Name().String()).
		WithResource(req.Manifest.Entry).
		WithSuggestions(
			"Scroll up for the backend's own error output",
			"Add missing packages to include.packages in "+manifest.FileName,
		).
		WithIssue(issue.CompilationFailedId).
		Wrap(err).
		BuildError())
}

func (p *Pipeline) normalize(req Request, res *Result, logger *log.Logger) error {
	start := time.Now()
	root := req.Manifest.OutputRoot(req.ProjectDir)

	norm, err := artifact.Normalize(root, req.Manifest.CanonicalName, req.Backend.Locators(req.backendRequest()))
	if err != nil {
		p.observe(StageNormalize, start, metrics.ResultFatal)
		return compilation(StageNormalize, issue.NewErrorContext().
			WithOperation("normalize build output").
			WithResource(root).
			WithSuggestion("Close programs holding files under the output root and rebuild").
			Wrap(err).
			BuildError())
	}
	res.Normalization = norm

	if norm.Artifact == nil {
		p.observe(StageNormalize, start, metrics.ResultWarning)
		res.warn(logger, StageNormalize, issue.OutputNotLocatedId, "no output located under %s", root)
		return nil
	}

	res.Artifact = norm.Artifact
	p.observe(StageNormalize, start, metrics.ResultSuccess)
	logger.Info("artifact ready", "path", norm.Artifact.Path, "form", norm.Artifact.Form, "moved", norm.Moved)
	return nil
}

func (p *Pipeline) seed(req Request, res *Result, logger *log.Logger) {
	start := time.Now()
	if res.Artifact == nil {
		p.observe(StageSeed, start, metrics.ResultSkipped)
		res.warn(logger, StageSeed, 0, "config seeding skipped: no artifact")
		return
	}

	m := req.Manifest
	template := m.Path(req.ProjectDir, m.ConfigTemplate)
	sr, err := artifact.Seed(template, res.Artifact, m.ConfigName)
	if err != nil {
		p.observe(StageSeed, start, metrics.ResultWarning)
		if errors.Is(err, artifact.ErrTemplateNotFound) {
			res.warn(logger, StageSeed, issue.TemplateNotFoundId, "%s not found, %s not created", m.ConfigTemplate, m.ConfigName)
			return
		}
		res.warn(logger, StageSeed, 0, "%v", err)
		return
	}

	res.Seed = sr
	if sr.ParseError != nil {
		p.observe(StageSeed, start, metrics.ResultWarning)
		res.warn(logger, StageSeed, 0, "%s is not valid TOML: %v", m.ConfigTemplate, sr.ParseError)
		return
	}
	p.observe(StageSeed, start, metrics.ResultSuccess)
	logger.Debug("config seeded", "path", sr.Path)
}

func (p *Pipeline) observe(s Stage, start time.Time, label metrics.ResultLabel) {
	p.recorder.ObserveStageDuration(s.String(), time.Since(start))
	p.recorder.IncStageResult(s.String(), label)
}

func (r *Result) warn(logger *log.Logger, s Stage, id issue.Id, format string, args ...any) {
	w := Warning{Stage: s, Issue: id, Message: fmt.Sprintf(format, args...)}
	r.Warnings = append(r.Warnings, w)
	logger.Warn(w.Message, "stage", s)
}

// resolve fills defaults and makes the project directory absolute.
func (r Request) resolve() (Request, error) {
	if r.Manifest == nil {
		return r, fmt.Errorf("%w: no manifest", ErrInvalidRequest)
	}
	if r.Backend == nil {
		return r, fmt.Errorf("%w: no backend", ErrInvalidRequest)
	}
	dir := r.ProjectDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return r, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	r.ProjectDir = abs
	if r.Platform == "" {
		r.Platform = platform.Host()
	}
	return r, nil
}

func (r Request) backendRequest() backend.Request {
	return backend.Request{ProjectDir: r.ProjectDir, Manifest: r.Manifest, Platform: r.Platform}
}

func outcomeOf(res *Result, err error) metrics.BuildOutcomeLabel {
	switch {
	case KindOf(err) == KindInterrupted:
		return metrics.OutcomeCanceled
	case err != nil:
		return metrics.OutcomeFailed
	case len(res.Warnings) > 0:
		return metrics.OutcomeWarning
	default:
		return metrics.OutcomeSuccess
	}
}

func environment(s Stage, err error) *StageError {
	return &StageError{Stage: s, Kind: KindEnvironment, Err: err}
}

func compilation(s Stage, err error) *StageError {
	return &StageError{Stage: s, Kind: KindCompilation, Err: err}
}

func interrupted(s Stage, err error) *StageError {
	return &StageError{Stage: s, Kind: KindInterrupted, Err: err}
}
