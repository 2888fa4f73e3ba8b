// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/captaincmd/pybuild/internal/runtime"
)

// Environment variables understood by SimulatePython.
const (
	// EnvMissing is a comma-separated list of modules whose import fails.
	EnvMissing = "FAKEPY_MISSING"
	// EnvPipFail makes pip exit 1.
	EnvPipFail = "FAKEPY_PIP_FAIL"
	// EnvBuildFail makes both backends exit 1.
	EnvBuildFail = "FAKEPY_BUILD_FAIL"
	// EnvNoOutput makes both backends succeed without writing output.
	EnvNoOutput = "FAKEPY_NO_OUTPUT"
	// EnvBundle makes PyInstaller emit an .app bundle next to its folder.
	EnvBundle = "FAKEPY_BUNDLE"
	// EnvLog names a file that receives one line per invocation.
	EnvLog = "FAKEPY_LOG"
)

// ErrSpawn is returned by FakeRunner when configured to fail before start.
var ErrSpawn = errors.New("fake spawn failure")

// FakeRunner is a runtime.Runner that simulates the interpreter in-process.
type FakeRunner struct {
	// Env overrides both the command's Env and the process environment.
	Env []string
	// SpawnErr makes every Run fail as if the binary could not start.
	SpawnErr error

	mu       sync.Mutex
	commands []runtime.Command
}

// Run records cmd and simulates it.
func (r *FakeRunner) Run(ctx context.Context, cmd runtime.Command) *runtime.Result {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if r.SpawnErr != nil {
		return runtime.NewErrorResult(1, r.SpawnErr)
	}
	if err := ctx.Err(); err != nil {
		return runtime.NewErrorResult(1, err)
	}

	stdout, stderr := cmd.Stdout, cmd.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	env := slices.Concat(os.Environ(), cmd.Env, r.Env)
	code := SimulatePython(cmd.Dir, cmd.Args, env, stdout, stderr)
	return runtime.NewExitCodeResult(runtime.ExitCode(code))
}

// Commands returns the commands run so far.
func (r *FakeRunner) Commands() []runtime.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commands)
}

// Invocations returns each recorded command as "arg0 arg1 ..." without the
// interpreter path.
func (r *FakeRunner) Invocations() []string {
	cmds := r.Commands()
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, strings.Join(c.Args, " "))
	}
	return out
}

// SimulatePython emulates `python <args>` run in dir and returns its exit
// code. Later env entries win.
func SimulatePython(dir string, args, env []string, stdout, stderr io.Writer) int {
	if dir == "" {
		dir = "."
	}
	lookup := func(key string) string {
		for i := len(env) - 1; i >= 0; i-- {
			if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
				return v
			}
		}
		return ""
	}

	if logPath := lookup(EnvLog); logPath != "" {
		appendLine(resolve(dir, logPath), strings.Join(args, " "))
	}

	switch {
	case len(args) == 2 && args[0] == "-c" && strings.HasPrefix(args[1], "import "):
		module := strings.TrimPrefix(args[1], "import ")
		if slices.Contains(strings.Split(lookup(EnvMissing), ","), module) {
			fmt.Fprintf(stderr, "ModuleNotFoundError: No module named '%s'\n", module)
			return 1
		}
		return 0

	case len(args) >= 3 && args[0] == "-m" && args[1] == "pip" && args[2] == "install":
		if lookup(EnvPipFail) != "" {
			fmt.Fprintln(stderr, "ERROR: Could not find a version that satisfies the requirement")
			return 1
		}
		fmt.Fprintf(stdout, "Successfully installed %s\n", strings.Join(args[3:], " "))
		return 0

	case len(args) >= 2 && args[0] == "-m" && args[1] == "nuitka":
		return simulateNuitka(dir, args[2:], lookup, stdout, stderr)

	case len(args) >= 2 && args[0] == "-m" && args[1] == "PyInstaller":
		return simulatePyInstaller(dir, args[2:], lookup, stdout, stderr)
	}

	fmt.Fprintf(stderr, "fakepython: unsupported invocation: %s\n", strings.Join(args, " "))
	return 2
}

func simulateNuitka(dir string, args []string, lookup func(string) string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "FATAL: no entry module given")
		return 2
	}
	entry := args[len(args)-1]
	if lookup(EnvBuildFail) != "" {
		fmt.Fprintf(stderr, "FATAL: failed to compile %s\n", entry)
		return 1
	}

	fmt.Fprintf(stdout, "Nuitka: Starting Python compilation of '%s'.\n", entry)
	if lookup(EnvNoOutput) != "" {
		return 0
	}

	out := resolve(dir, flagValue(args, "--output-dir", "."))
	stem := strings.TrimSuffix(filepath.Base(entry), filepath.Ext(entry))

	var exeDir string
	if slices.Contains(args, "--macos-create-app-bundle") {
		exeDir = filepath.Join(out, stem+".app", "Contents", "MacOS")
	} else {
		exeDir = filepath.Join(out, stem+".dist")
	}
	if err := writeExecutable(exeDir, stem); err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Nuitka: Successfully created '%s'.\n", exeDir)
	return 0
}

func simulatePyInstaller(dir string, args []string, lookup func(string) string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "error: the following arguments are required: scriptname")
		return 2
	}
	entry := args[len(args)-1]
	if lookup(EnvBuildFail) != "" {
		fmt.Fprintf(stderr, "ERROR: failed to analyze %s\n", entry)
		return 1
	}

	fmt.Fprintf(stdout, "INFO: PyInstaller: building %s\n", entry)
	if lookup(EnvNoOutput) != "" {
		return 0
	}

	stem := strings.TrimSuffix(filepath.Base(entry), filepath.Ext(entry))
	name := flagValue(args, "--name", stem)
	dist := resolve(dir, flagValue(args, "--distpath", "dist"))
	work := resolve(dir, flagValue(args, "--workpath", "build"))
	spec := resolve(dir, flagValue(args, "--specpath", "."))

	if err := os.MkdirAll(filepath.Join(work, name), 0o755); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	if err := os.MkdirAll(spec, 0o755); err == nil {
		_ = os.WriteFile(filepath.Join(spec, name+".spec"), []byte("# generated\n"), 0o644)
	}

	if err := writeExecutable(filepath.Join(dist, name), name); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	if lookup(EnvBundle) != "" {
		if err := writeExecutable(filepath.Join(dist, name+".app", "Contents", "MacOS"), name); err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
	}
	fmt.Fprintln(stdout, "INFO: Building COLLECT completed successfully.")
	return 0
}

// flagValue returns the value of the last "--name=value" argument.
func flagValue(args []string, name, fallback string) string {
	value := fallback
	for _, a := range args {
		if v, ok := strings.CutPrefix(a, name+"="); ok {
			value = v
		}
	}
	return value
}

func resolve(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func writeExecutable(dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte("#!fake executable\n"), 0o755)
}

func appendLine(path, line string) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}
