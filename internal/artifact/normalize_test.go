// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize_FlatRenamed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := mkdirAll(t, root, "captain_cmd")
	writeFile(t, filepath.Join(src, "captain_cmd"), "exe")

	res, err := Normalize(root, "main", []Locator{
		BundleAt(filepath.Join(root, "captain_cmd.app")),
		FlatAt(src),
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.Artifact == nil {
		t.Fatal("expected an artifact")
	}
	want := filepath.Join(root, "main.dist")
	if res.Artifact.Path != want || res.Artifact.Form != FormFlat {
		t.Errorf("artifact = %+v, want flat at %s", res.Artifact, want)
	}
	if !res.Moved || res.Replaced {
		t.Errorf("Moved/Replaced = %v/%v, want true/false", res.Moved, res.Replaced)
	}
	if _, err := os.Stat(filepath.Join(want, "captain_cmd")); err != nil {
		t.Errorf("executable not moved with its directory: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source directory should no longer exist")
	}
}

func TestNormalize_BundlePreferred(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirAll(t, root, "captain_cmd.app", "Contents", "MacOS")
	flat := mkdirAll(t, root, "captain_cmd")

	res, err := Normalize(root, "main", []Locator{
		BundleAt(filepath.Join(root, "captain_cmd.app")),
		FlatAt(flat),
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.Artifact == nil || res.Artifact.Form != FormBundle {
		t.Fatalf("expected bundle artifact, got %+v", res.Artifact)
	}
	if res.Artifact.Path != filepath.Join(root, "main.app") {
		t.Errorf("artifact path = %q", res.Artifact.Path)
	}
	if _, err := os.Stat(filepath.Join(root, "main.app", "Contents", "MacOS")); err != nil {
		t.Errorf("bundle contents missing after move: %v", err)
	}

	if len(res.Pruned) != 1 || res.Pruned[0] != flat {
		t.Errorf("Pruned = %v, want [%s]", res.Pruned, flat)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Errorf("root should hold exactly one artifact, has %d entries", len(entries))
	}
}

func TestNormalize_ReplacesExistingTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, target string)
	}{
		{"directory", func(t *testing.T, target string) {
			mkdirAll(t, target)
			writeFile(t, filepath.Join(target, "stale"), "old")
		}},
		{"file", func(t *testing.T, target string) {
			writeFile(t, target, "old")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			target := filepath.Join(root, "main.dist")
			tt.setup(t, target)
			src := mkdirAll(t, root, "captain_cmd")
			writeFile(t, filepath.Join(src, "fresh"), "new")

			res, err := Normalize(root, "main", []Locator{FlatAt(src)})
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !res.Replaced {
				t.Error("expected Replaced to be true")
			}
			if _, err := os.Stat(filepath.Join(target, "stale")); !os.IsNotExist(err) {
				t.Error("stale content should be gone")
			}
			if _, err := os.Stat(filepath.Join(target, "fresh")); err != nil {
				t.Errorf("fresh content missing: %v", err)
			}
		})
	}
}

func TestNormalize_AlreadyCanonical(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dist := mkdirAll(t, root, "main.dist")
	writeFile(t, filepath.Join(dist, "main"), "exe")

	res, err := Normalize(root, "main", []Locator{
		BundleAt(filepath.Join(root, "main.app")),
		FlatAt(dist),
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.Artifact == nil || res.Artifact.Path != dist {
		t.Fatalf("artifact = %+v, want %s", res.Artifact, dist)
	}
	if res.Moved || res.Replaced {
		t.Errorf("canonical output should be left in place, Moved=%v Replaced=%v", res.Moved, res.Replaced)
	}
	if _, err := os.Stat(filepath.Join(dist, "main")); err != nil {
		t.Errorf("artifact content lost: %v", err)
	}
}

func TestNormalize_NothingLocated(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	res, err := Normalize(root, "main", []Locator{
		BundleAt(filepath.Join(root, "main.app")),
		FlatAt(filepath.Join(root, "main.dist")),
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.Artifact != nil {
		t.Errorf("expected no artifact, got %+v", res.Artifact)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	locators := func() []Locator {
		return []Locator{
			BundleAt(filepath.Join(root, "captain_cmd.app")),
			FlatAt(filepath.Join(root, "captain_cmd")),
		}
	}

	for run := range 2 {
		mkdirAll(t, root, "captain_cmd")
		res, err := Normalize(root, "main", locators())
		if err != nil {
			t.Fatalf("run %d: Normalize() error = %v", run, err)
		}
		if res.Artifact == nil || res.Artifact.Path != filepath.Join(root, "main.dist") {
			t.Fatalf("run %d: artifact = %+v", run, res.Artifact)
		}
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 1 || entries[0].Name() != "main.dist" {
		t.Errorf("root entries after repeated runs = %v", entries)
	}
}
