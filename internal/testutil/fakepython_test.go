// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/captaincmd/pybuild/internal/runtime"
)

func TestSimulatePython_ImportProbe(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	env := []string{EnvMissing + "=nuitka,zstandard"}

	if code := SimulatePython("", []string{"-c", "import PyInstaller"}, env, &bytes.Buffer{}, &stderr); code != 0 {
		t.Errorf("present module probe exit = %d, want 0", code)
	}
	if code := SimulatePython("", []string{"-c", "import nuitka"}, env, &bytes.Buffer{}, &stderr); code != 1 {
		t.Errorf("missing module probe exit = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "No module named 'nuitka'") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestSimulatePython_Pip(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	args := []string{"-m", "pip", "install", "nuitka", "zstandard"}
	if code := SimulatePython("", args, nil, &stdout, &bytes.Buffer{}); code != 0 {
		t.Fatalf("pip exit = %d", code)
	}
	if !strings.Contains(stdout.String(), "Successfully installed nuitka zstandard") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if code := SimulatePython("", args, []string{EnvPipFail + "=1"}, &bytes.Buffer{}, &bytes.Buffer{}); code != 1 {
		t.Errorf("failing pip exit = %d, want 1", code)
	}
}

func TestSimulatePython_Nuitka(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	args := []string{"-m", "nuitka", "--standalone", "--output-dir=.build", "main.py"}
	if code := SimulatePython(dir, args, nil, &bytes.Buffer{}, &bytes.Buffer{}); code != 0 {
		t.Fatalf("nuitka exit = %d", code)
	}
	if !Exists(filepath.Join(dir, ".build", "main.dist", "main")) {
		t.Error("expected .build/main.dist/main")
	}

	bundle := append(args[:len(args)-1:len(args)-1], "--macos-create-app-bundle", "main.py")
	if code := SimulatePython(dir, bundle, nil, &bytes.Buffer{}, &bytes.Buffer{}); code != 0 {
		t.Fatalf("nuitka bundle exit = %d", code)
	}
	if !Exists(filepath.Join(dir, ".build", "main.app", "Contents", "MacOS", "main")) {
		t.Error("expected .build/main.app/Contents/MacOS/main")
	}
}

func TestSimulatePython_PyInstaller(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	args := []string{
		"-m", "PyInstaller", "--name=captain_cmd", "--distpath=.build",
		"--workpath=build/pyinstaller-work", "--specpath=build", "main.py",
	}
	if code := SimulatePython(dir, args, []string{EnvBundle + "=1"}, &bytes.Buffer{}, &bytes.Buffer{}); code != 0 {
		t.Fatalf("pyinstaller exit = %d", code)
	}
	for _, p := range []string{
		filepath.Join(dir, ".build", "captain_cmd", "captain_cmd"),
		filepath.Join(dir, ".build", "captain_cmd.app", "Contents", "MacOS", "captain_cmd"),
		filepath.Join(dir, "build", "captain_cmd.spec"),
		filepath.Join(dir, "build", "pyinstaller-work", "captain_cmd"),
	} {
		if !Exists(p) {
			t.Errorf("expected %s", p)
		}
	}
}

func TestSimulatePython_BuildFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	env := []string{EnvBuildFail + "=1"}
	for _, module := range []string{"nuitka", "PyInstaller"} {
		code := SimulatePython(dir, []string{"-m", module, "main.py"}, env, &bytes.Buffer{}, &bytes.Buffer{})
		if code != 1 {
			t.Errorf("%s exit = %d, want 1", module, code)
		}
	}
	if Exists(filepath.Join(dir, ".build")) {
		t.Error("a failed build should leave no output")
	}
}

func TestSimulatePython_Log(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	env := []string{EnvLog + "=calls.log"}
	SimulatePython(dir, []string{"-c", "import nuitka"}, env, &bytes.Buffer{}, &bytes.Buffer{})
	SimulatePython(dir, []string{"-m", "pip", "install", "nuitka"}, env, &bytes.Buffer{}, &bytes.Buffer{})

	got := MustReadFile(t, filepath.Join(dir, "calls.log"))
	want := "-c import nuitka\n-m pip install nuitka\n"
	if got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
}

func TestSimulatePython_Unsupported(t *testing.T) {
	t.Parallel()

	if code := SimulatePython("", []string{"--version"}, nil, &bytes.Buffer{}, &bytes.Buffer{}); code != 2 {
		t.Errorf("unsupported invocation exit = %d, want 2", code)
	}
}

func TestFakeRunner(t *testing.T) {
	t.Parallel()

	r := &FakeRunner{Env: []string{EnvMissing + "=nuitka"}}
	res := r.Run(context.Background(), runtime.Command{Path: "python3", Args: []string{"-c", "import nuitka"}})
	if res.Success() {
		t.Error("probe for a missing module should fail")
	}
	if res.Error != nil {
		t.Errorf("a failed probe is an exit status, not a spawn error: %v", res.Error)
	}

	if got := r.Invocations(); len(got) != 1 || got[0] != "-c import nuitka" {
		t.Errorf("Invocations() = %v", got)
	}

	failing := &FakeRunner{SpawnErr: ErrSpawn}
	res = failing.Run(context.Background(), runtime.Command{Path: "python3"})
	if !errors.Is(res.Error, ErrSpawn) {
		t.Errorf("Error = %v, want ErrSpawn", res.Error)
	}
}
