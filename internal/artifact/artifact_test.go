// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func mkdirAll(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", p, err)
	}
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestForm(t *testing.T) {
	t.Parallel()

	if FormFlat.String() != "flat" || FormBundle.String() != "bundle" {
		t.Errorf("unexpected form names: %s, %s", FormFlat, FormBundle)
	}
	if FormFlat.Suffix() != ".dist" || FormBundle.Suffix() != ".app" {
		t.Errorf("unexpected suffixes: %s, %s", FormFlat.Suffix(), FormBundle.Suffix())
	}
	if got := Form(7).String(); got != "Form(7)" {
		t.Errorf("unknown form String() = %q", got)
	}
}

func TestCanonicalPath(t *testing.T) {
	t.Parallel()

	root := filepath.Join("proj", ".build")
	if got, want := CanonicalPath(root, "main", FormFlat), filepath.Join(root, "main.dist"); got != want {
		t.Errorf("CanonicalPath(flat) = %q, want %q", got, want)
	}
	if got, want := CanonicalPath(root, "main", FormBundle), filepath.Join(root, "main.app"); got != want {
		t.Errorf("CanonicalPath(bundle) = %q, want %q", got, want)
	}
}

func TestLocator(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := mkdirAll(t, root, "captain_cmd")
	file := filepath.Join(root, "captain_cmd.app")
	writeFile(t, file, "not a bundle")

	if p, ok := FlatAt(dir).Locate(); !ok || p != dir {
		t.Errorf("FlatAt(existing dir).Locate() = %q, %v", p, ok)
	}
	if _, ok := BundleAt(file).Locate(); ok {
		t.Error("a regular file should not be located as a bundle")
	}
	if _, ok := FlatAt(filepath.Join(root, "missing")).Locate(); ok {
		t.Error("missing path should not be located")
	}
	if BundleAt(file).Form() != FormBundle || FlatAt(dir).Form() != FormFlat {
		t.Error("locators report the wrong form")
	}
}

func TestConfigDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	flat := &Artifact{Path: mkdirAll(t, root, "main.dist"), Form: FormFlat}
	if got := flat.ConfigDir(); got != flat.Path {
		t.Errorf("flat ConfigDir() = %q, want %q", got, flat.Path)
	}

	withMacOS := &Artifact{Path: mkdirAll(t, root, "main.app"), Form: FormBundle}
	macOS := mkdirAll(t, withMacOS.Path, "Contents", "MacOS")
	if got := withMacOS.ConfigDir(); got != macOS {
		t.Errorf("bundle ConfigDir() = %q, want %q", got, macOS)
	}

	bare := &Artifact{Path: mkdirAll(t, root, "bare.app"), Form: FormBundle}
	if got := bare.ConfigDir(); got != bare.Path {
		t.Errorf("bundle without Contents/MacOS ConfigDir() = %q, want %q", got, bare.Path)
	}
}

func TestExpectedConfigDir(t *testing.T) {
	t.Parallel()

	if got := ExpectedConfigDir("main.dist", FormFlat); got != "main.dist" {
		t.Errorf("flat = %q", got)
	}
	want := filepath.Join("main.app", "Contents", "MacOS")
	if got := ExpectedConfigDir("main.app", FormBundle); got != want {
		t.Errorf("bundle = %q, want %q", got, want)
	}
}
