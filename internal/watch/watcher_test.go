// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, cfg Config) (cancel func() error) {
	t.Helper()

	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	return func() error {
		stop()
		return <-errCh
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TestWatcherDebounce verifies that rapid edits coalesce into one rebuild.
func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)
	done := make(chan struct{})

	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"**/*.py"},
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			if calls == 1 {
				close(done)
			}
			return nil
		},
	})

	for _, name := range []string{"main.py", "agent.py", "tools.py"} {
		write(t, filepath.Join(dir, name), "print()")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	time.Sleep(200 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
	for _, want := range []string{"agent.py", "main.py", "tools.py"} {
		if !slices.Contains(collected, want) {
			t.Errorf("expected %q in changed files, got %v", want, collected)
		}
	}
}

// TestWatcherPatternFiltering confirms that only matching files trigger.
func TestWatcherPatternFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan []string, 10)

	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"**/*.py", "config.example.toml"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	defer stop() //nolint:errcheck // checked in the happy path below

	write(t, filepath.Join(dir, "README.md"), "docs")
	time.Sleep(200 * time.Millisecond)
	select {
	case changed := <-fired:
		t.Fatalf("non-matching file triggered a rebuild: %v", changed)
	default:
	}

	write(t, filepath.Join(dir, "config.example.toml"), "a = 1")
	select {
	case changed := <-fired:
		if !slices.Contains(changed, "config.example.toml") {
			t.Errorf("expected config.example.toml in changed set, got %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback on template change")
	}
}

// TestWatcherIgnoresOutput confirms that writes below an ignored directory,
// such as the output root, never trigger a rebuild.
func TestWatcherIgnoresOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, ".build", "main.dist")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	fired := make(chan []string, 10)

	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"**/*.py"},
		Ignore:   []string{".build/**"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	defer stop() //nolint:errcheck // cleanup

	write(t, filepath.Join(out, "generated.py"), "x = 1")
	time.Sleep(200 * time.Millisecond)
	write(t, filepath.Join(dir, "main.py"), "x = 2")

	select {
	case changed := <-fired:
		if slices.Contains(changed, ".build/main.dist/generated.py") {
			t.Error("ignored output file appeared in changed set")
		}
		if !slices.Contains(changed, "main.py") {
			t.Errorf("expected main.py in changed set, got %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

// TestWatcherNewDirectory verifies that directories created after startup
// are watched too.
func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan []string, 10)

	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"**/*.py"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	defer stop() //nolint:errcheck // cleanup

	pkg := filepath.Join(dir, "tools")
	if err := os.Mkdir(pkg, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	write(t, filepath.Join(pkg, "search.py"), "pass")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-fired:
			if slices.Contains(changed, "tools/search.py") {
				return
			}
		case <-deadline:
			t.Fatal("file in new directory never triggered a rebuild")
		}
	}
}

// TestWatcherSerializesCallbacks verifies that a slow rebuild is never
// overlapped by the next one.
func TestWatcherSerializesCallbacks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		inFlight   atomic.Int32
		overlapped atomic.Bool
		calls      atomic.Int32
	)
	firstStarted := make(chan struct{})

	stop := startWatcher(t, Config{
		BaseDir:  dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			if inFlight.Add(1) > 1 {
				overlapped.Store(true)
			}
			defer inFlight.Add(-1)
			if calls.Add(1) == 1 {
				close(firstStarted)
				time.Sleep(300 * time.Millisecond)
			}
			return nil
		},
	})

	write(t, filepath.Join(dir, "first.py"), "1")
	select {
	case <-firstStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first callback")
	}
	write(t, filepath.Join(dir, "second.py"), "2")

	time.Sleep(600 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if overlapped.Load() {
		t.Error("callbacks overlapped")
	}
	if calls.Load() < 2 {
		t.Errorf("deferred changes were lost: %d callback(s)", calls.Load())
	}
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	stop := startWatcher(t, Config{BaseDir: t.TempDir()})

	done := make(chan error, 1)
	go func() { done <- stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() should return nil on cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestWatcherDoubleRunError(t *testing.T) {
	t.Parallel()

	w, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Run() = %v, want ErrAlreadyStarted", err)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestWatcherInvalidPattern(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{BaseDir: t.TempDir(), Patterns: []string{"[invalid"}},
		{BaseDir: t.TempDir(), Ignore: []string{""}},
	} {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	ignored := []string{
		".git/HEAD",
		".venv/lib/python3.12/site.py",
		"agent/__pycache__/core.cpython-312.pyc",
		"main.pyc",
		".DS_Store",
		"main.py~",
	}
	kept := []string{"main.py", "agent/core.py", "config.example.toml"}

	for _, rel := range ignored {
		if !matchAny(DefaultIgnores(), rel) {
			t.Errorf("%q should be ignored by default", rel)
		}
	}
	for _, rel := range kept {
		if matchAny(DefaultIgnores(), rel) {
			t.Errorf("%q should not be ignored by default", rel)
		}
	}

	copied := DefaultIgnores()
	copied[0] = "changed"
	if DefaultIgnores()[0] == "changed" {
		t.Error("DefaultIgnores should return a copy")
	}
}
