// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/captaincmd/pybuild/internal/artifact"
	"github.com/captaincmd/pybuild/internal/backend"
	"github.com/captaincmd/pybuild/internal/issue"
	"github.com/captaincmd/pybuild/internal/manifest"
	"github.com/captaincmd/pybuild/internal/metrics"
	"github.com/captaincmd/pybuild/internal/platform"
	"github.com/captaincmd/pybuild/internal/python"
	"github.com/captaincmd/pybuild/internal/runtime"
	"github.com/captaincmd/pybuild/internal/testutil"
)

type recordingRecorder struct {
	mu       sync.Mutex
	stages   map[string]metrics.ResultLabel
	outcomes []metrics.BuildOutcomeLabel
	installs []bool
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{stages: make(map[string]metrics.ResultLabel)}
}

func (r *recordingRecorder) ObserveStageDuration(string, time.Duration) {}
func (r *recordingRecorder) ObserveBuildDuration(string, time.Duration) {}

func (r *recordingRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] = result
}

func (r *recordingRecorder) IncBuildOutcome(_ string, outcome metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) IncBackendInstall(_ string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installs = append(r.installs, success)
}

func fakeLookPath(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func newTestPipeline(runner *testutil.FakeRunner, rec metrics.Recorder) *Pipeline {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return New(
		WithRunner(runner),
		WithRecorder(rec),
		WithOutput(io.Discard, io.Discard),
		WithLookPath(fakeLookPath),
	)
}

func newRequest(t *testing.T, dir string, name backend.Name, o platform.OS) Request {
	t.Helper()
	b, err := backend.Lookup(name.String())
	require.NoError(t, err)
	return Request{
		ProjectDir: dir,
		Manifest:   manifest.DefaultConfig(),
		Backend:    b,
		Platform:   o,
	}
}

func TestRun_NuitkaFlat(t *testing.T) {
	dir := testutil.NewProject(t, true)
	runner := &testutil.FakeRunner{}
	rec := newRecordingRecorder()

	res, err := newTestPipeline(runner, rec).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.NoError(t, err)

	want := filepath.Join(dir, ".build", "main.dist")
	require.NotNil(t, res.Artifact)
	assert.Equal(t, want, res.Artifact.Path)
	assert.Equal(t, artifact.FormFlat, res.Artifact.Form)
	assert.False(t, res.Normalization.Moved, "nuitka output is already canonical for main.py")
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "/usr/bin/python3", res.Python)
	assert.NotEqual(t, uuid.Nil, res.RunID)

	require.NotNil(t, res.Seed)
	assert.Equal(t, filepath.Join(want, "config.toml"), res.Seed.Path)
	assert.Equal(t,
		testutil.MustReadFile(t, filepath.Join(dir, "config.example.toml")),
		testutil.MustReadFile(t, res.Seed.Path))

	entries, err := os.ReadDir(filepath.Join(dir, ".build"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.OutcomeSuccess}, rec.outcomes)
	assert.Equal(t, metrics.ResultSuccess, rec.stages["seed"])
	assert.Empty(t, rec.installs)
}

func TestRun_NuitkaBundleOnDarwin(t *testing.T) {
	dir := testutil.NewProject(t, true)

	res, err := newTestPipeline(&testutil.FakeRunner{}, nil).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Darwin))
	require.NoError(t, err)

	require.NotNil(t, res.Artifact)
	assert.Equal(t, filepath.Join(dir, ".build", "main.app"), res.Artifact.Path)
	assert.Equal(t, artifact.FormBundle, res.Artifact.Form)
	assert.Equal(t, filepath.Join(dir, ".build", "main.app", "Contents", "MacOS", "config.toml"), res.Seed.Path)
}

func TestRun_PyInstallerRenamesToCanonical(t *testing.T) {
	dir := testutil.NewProject(t, true)

	res, err := newTestPipeline(&testutil.FakeRunner{}, nil).Run(context.Background(), newRequest(t, dir, backend.PyInstaller, platform.Linux))
	require.NoError(t, err)

	require.NotNil(t, res.Artifact)
	assert.Equal(t, filepath.Join(dir, ".build", "main.dist"), res.Artifact.Path)
	assert.True(t, res.Normalization.Moved)
	assert.Equal(t, filepath.Join(dir, ".build", "captain_cmd"), res.Normalization.Source)
	assert.True(t, testutil.Exists(filepath.Join(dir, ".build", "main.dist", "captain_cmd")))
	assert.False(t, testutil.Exists(filepath.Join(dir, ".build", "captain_cmd")))
	assert.True(t, testutil.Exists(filepath.Join(dir, ".build", "main.dist", "config.toml")))

	// Scratch output stays outside the output root.
	assert.True(t, testutil.Exists(filepath.Join(dir, "build", "captain_cmd.spec")))
}

func TestRun_PyInstallerBundlePrunesFlat(t *testing.T) {
	dir := testutil.NewProject(t, true)
	runner := &testutil.FakeRunner{Env: []string{testutil.EnvBundle + "=1"}}

	res, err := newTestPipeline(runner, nil).Run(context.Background(), newRequest(t, dir, backend.PyInstaller, platform.Darwin))
	require.NoError(t, err)

	require.NotNil(t, res.Artifact)
	assert.Equal(t, filepath.Join(dir, ".build", "main.app"), res.Artifact.Path)
	assert.Equal(t, []string{filepath.Join(dir, ".build", "captain_cmd")}, res.Normalization.Pruned)

	entries, err := os.ReadDir(filepath.Join(dir, ".build"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRun_RepeatedRunsAreIdempotent(t *testing.T) {
	for _, name := range []backend.Name{backend.Nuitka, backend.PyInstaller} {
		t.Run(name.String(), func(t *testing.T) {
			dir := testutil.NewProject(t, true)
			p := newTestPipeline(&testutil.FakeRunner{}, nil)
			req := newRequest(t, dir, name, platform.Linux)

			first, err := p.Run(context.Background(), req)
			require.NoError(t, err)
			second, err := p.Run(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, first.Artifact.Path, second.Artifact.Path)
			assert.NotEqual(t, first.RunID, second.RunID)
			assert.Contains(t, second.Cleaned.Removed, filepath.Join(dir, ".build"))

			entries, err := os.ReadDir(filepath.Join(dir, ".build"))
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestRun_MissingTemplateWarns(t *testing.T) {
	dir := testutil.NewProject(t, false)
	rec := newRecordingRecorder()

	res, err := newTestPipeline(&testutil.FakeRunner{}, rec).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.NoError(t, err)

	require.NotNil(t, res.Artifact)
	assert.Nil(t, res.Seed)
	assert.False(t, testutil.Exists(filepath.Join(res.Artifact.Path, "config.toml")))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, StageSeed, res.Warnings[0].Stage)
	assert.Equal(t, issue.TemplateNotFoundId, res.Warnings[0].Issue)
	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.OutcomeWarning}, rec.outcomes)
}

func TestRun_InvalidTemplateIsCopiedWithWarning(t *testing.T) {
	dir := testutil.NewProject(t, false)
	testutil.MustWriteFile(t, filepath.Join(dir, "config.example.toml"), "not = [valid\n")

	res, err := newTestPipeline(&testutil.FakeRunner{}, nil).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.NoError(t, err)

	require.NotNil(t, res.Seed)
	assert.Error(t, res.Seed.ParseError)
	assert.True(t, testutil.Exists(res.Seed.Path))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "not valid TOML")
}

func TestRun_NoOutputSkipsSeeding(t *testing.T) {
	dir := testutil.NewProject(t, true)
	runner := &testutil.FakeRunner{Env: []string{testutil.EnvNoOutput + "=1"}}
	rec := newRecordingRecorder()

	res, err := newTestPipeline(runner, rec).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.NoError(t, err)

	assert.Nil(t, res.Artifact)
	assert.Nil(t, res.Seed)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, issue.OutputNotLocatedId, res.Warnings[0].Issue)
	assert.Equal(t, StageSeed, res.Warnings[1].Stage)
	assert.Equal(t, metrics.ResultSkipped, rec.stages["seed"])
}

func TestRun_MissingEntryIsCompilationError(t *testing.T) {
	dir := t.TempDir()
	runner := &testutil.FakeRunner{}

	res, err := newTestPipeline(runner, nil).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageInvoke, se.Stage)
	assert.Equal(t, KindCompilation, se.Kind)
	assert.Equal(t, ExitCompilation, se.ExitCode())
	assert.ErrorIs(t, err, backend.ErrEntryNotFound)
	assert.Equal(t, issue.EntryModuleNotFoundId, issue.IssueOf(err))

	assert.Nil(t, res.Artifact)
	for _, inv := range runner.Invocations() {
		assert.NotContains(t, inv, "nuitka --standalone", "backend must not be spawned")
	}
	entries, err := os.ReadDir(filepath.Join(dir, ".build"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_BackendFailureIsCompilationError(t *testing.T) {
	dir := testutil.NewProject(t, true)
	runner := &testutil.FakeRunner{Env: []string{testutil.EnvBuildFail + "=1"}}
	rec := newRecordingRecorder()

	res, err := newTestPipeline(runner, rec).Run(context.Background(), newRequest(t, dir, backend.PyInstaller, platform.Linux))
	require.Error(t, err)

	assert.Equal(t, KindCompilation, KindOf(err))
	assert.ErrorIs(t, err, backend.ErrCompilationFailed)
	assert.Equal(t, issue.CompilationFailedId, issue.IssueOf(err))
	assert.Contains(t, err.Error(), "pyinstaller exited with status 1")
	assert.Nil(t, res.Normalization)
	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.OutcomeFailed}, rec.outcomes)
	assert.Equal(t, metrics.ResultFatal, rec.stages["invoke"])
}

func TestRun_SpawnFailureIsEnvironmentError(t *testing.T) {
	dir := testutil.NewProject(t, true)
	runner := &testutil.FakeRunner{SpawnErr: testutil.ErrSpawn}

	_, err := newTestPipeline(runner, nil).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.Error(t, err)

	// The interpreter cannot even run the import probe.
	assert.Equal(t, KindEnvironment, KindOf(err))
	assert.ErrorIs(t, err, testutil.ErrSpawn)
}

// backendSpawnFailure lets the import probe run but fails to start the
// compiler itself.
type backendSpawnFailure struct {
	testutil.FakeRunner
}

func (r *backendSpawnFailure) Run(ctx context.Context, cmd runtime.Command) *runtime.Result {
	if slices.Contains(cmd.Args, "-m") {
		return runtime.NewErrorResult(1, testutil.ErrSpawn)
	}
	return r.FakeRunner.Run(ctx, cmd)
}

func TestRun_BackendSpawnFailureIsCompilationError(t *testing.T) {
	dir := testutil.NewProject(t, true)

	p := New(
		WithRunner(&backendSpawnFailure{}),
		WithOutput(io.Discard, io.Discard),
		WithLookPath(fakeLookPath),
	)
	res, err := p.Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.Error(t, err)

	assert.Equal(t, KindCompilation, KindOf(err))
	assert.Equal(t, ExitCompilation, KindOf(err).ExitCode())
	assert.ErrorIs(t, err, testutil.ErrSpawn)
	assert.Nil(t, res.Artifact)
}

func TestRun_InstallsMissingBackend(t *testing.T) {
	dir := testutil.NewProject(t, true)
	runner := &testutil.FakeRunner{Env: []string{testutil.EnvMissing + "=nuitka"}}
	rec := newRecordingRecorder()

	res, err := newTestPipeline(runner, rec).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.NoError(t, err)

	assert.True(t, res.Installed)
	assert.Contains(t, runner.Invocations(), "-m pip install nuitka zstandard")
	assert.Equal(t, []bool{true}, rec.installs)
}

func TestRun_NoInstallFailsOnMissingBackend(t *testing.T) {
	dir := testutil.NewProject(t, true)
	runner := &testutil.FakeRunner{Env: []string{testutil.EnvMissing + "=PyInstaller"}}
	req := newRequest(t, dir, backend.PyInstaller, platform.Linux)
	req.SkipInstall = true

	_, err := newTestPipeline(runner, nil).Run(context.Background(), req)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageEnsure, se.Stage)
	assert.Equal(t, ExitEnvironment, se.ExitCode())
	assert.ErrorIs(t, err, python.ErrModuleMissing)
	assert.Equal(t, issue.BackendNotInstalledId, issue.IssueOf(err))
	assert.NotContains(t, runner.Invocations(), "-m pip install pyinstaller")
}

func TestRun_InstallFailureIsEnvironmentError(t *testing.T) {
	dir := testutil.NewProject(t, true)
	runner := &testutil.FakeRunner{Env: []string{
		testutil.EnvMissing + "=nuitka",
		testutil.EnvPipFail + "=1",
	}}
	rec := newRecordingRecorder()

	_, err := newTestPipeline(runner, rec).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.Error(t, err)

	assert.Equal(t, KindEnvironment, KindOf(err))
	assert.ErrorIs(t, err, python.ErrInstallFailed)
	assert.Equal(t, issue.BackendInstallFailedId, issue.IssueOf(err))
	assert.Equal(t, []bool{false}, rec.installs)
}

func TestRun_InterpreterNotFound(t *testing.T) {
	dir := testutil.NewProject(t, true)
	p := New(
		WithRunner(&testutil.FakeRunner{}),
		WithOutput(io.Discard, io.Discard),
		WithLookPath(func(string) (string, error) { return "", errors.New("not found") }),
	)

	_, err := p.Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.Error(t, err)

	assert.Equal(t, KindEnvironment, KindOf(err))
	assert.ErrorIs(t, err, python.ErrInterpreterNotFound)
	assert.Equal(t, issue.InterpreterNotFoundId, issue.IssueOf(err))
}

func TestRun_Canceled(t *testing.T) {
	dir := testutil.NewProject(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := newRecordingRecorder()

	_, err := newTestPipeline(&testutil.FakeRunner{}, rec).Run(ctx, newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.Error(t, err)

	assert.Equal(t, KindInterrupted, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.OutcomeCanceled}, rec.outcomes)
}

func TestRun_EnvFileReachesBackend(t *testing.T) {
	dir := testutil.NewProject(t, true)
	logPath := filepath.Join(t.TempDir(), "calls.log")
	testutil.MustWriteFile(t, filepath.Join(dir, ".env"), testutil.EnvLog+"="+logPath+"\n")

	_, err := newTestPipeline(&testutil.FakeRunner{}, nil).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.NoError(t, err)

	logged := testutil.MustReadFile(t, logPath)
	assert.Contains(t, logged, "-c import nuitka")
	assert.Contains(t, logged, "-m nuitka --standalone")
}

func TestRun_RemovesStaleArtifacts(t *testing.T) {
	dir := testutil.NewProject(t, true)
	testutil.MustWriteFile(t, filepath.Join(dir, ".build", "old.txt"), "stale")
	testutil.MustWriteFile(t, filepath.Join(dir, "dist", "captain_cmd", "captain_cmd"), "stale")
	testutil.MustWriteFile(t, filepath.Join(dir, "main.build", "module.c"), "stale")

	_, err := newTestPipeline(&testutil.FakeRunner{}, nil).Run(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.NoError(t, err)

	assert.False(t, testutil.Exists(filepath.Join(dir, ".build", "old.txt")))
	assert.False(t, testutil.Exists(filepath.Join(dir, "dist")))
	assert.False(t, testutil.Exists(filepath.Join(dir, "main.build")))
}

func TestRun_CleanFailureIsAWarning(t *testing.T) {
	dir := testutil.NewProject(t, true)
	testutil.MustWriteFile(t, filepath.Join(dir, "dist", "captain_cmd", "captain_cmd"), "stale")
	rec := newRecordingRecorder()

	req := newRequest(t, dir, backend.Nuitka, platform.Linux)
	req.Manifest.Clean = []string{"bad\x00dir"}

	res, err := newTestPipeline(&testutil.FakeRunner{}, rec).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, StageClean, res.Warnings[0].Stage)
	assert.Contains(t, res.Warnings[0].Message, "failed to remove")
	require.Len(t, res.Cleaned.Failed, 1)
	assert.False(t, testutil.Exists(filepath.Join(dir, "dist")), "other targets are still removed")

	require.NotNil(t, res.Artifact)
	assert.Equal(t, filepath.Join(dir, ".build", "main.dist"), res.Artifact.Path)
	require.NotNil(t, res.Seed)
	assert.True(t, testutil.Exists(res.Seed.Path))

	assert.Equal(t, metrics.ResultWarning, rec.stages["clean"])
	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.OutcomeWarning}, rec.outcomes)
}

func TestRun_InvalidRequest(t *testing.T) {
	_, err := New().Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClean(t *testing.T) {
	dir := testutil.NewProject(t, true)
	testutil.MustWriteFile(t, filepath.Join(dir, ".build", "main.dist", "main"), "x")

	report, err := newTestPipeline(&testutil.FakeRunner{}, nil).Clean(context.Background(), newRequest(t, dir, backend.Nuitka, platform.Linux))
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Contains(t, report.Removed, filepath.Join(dir, ".build"))
	assert.True(t, testutil.Exists(filepath.Join(dir, ".build")), "output root is recreated")
	assert.True(t, testutil.Exists(filepath.Join(dir, "main.py")))
}
