// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestSeed_Flat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	template := filepath.Join(dir, "config.example.toml")
	writeFile(t, template, "[model]\nname = \"gpt\"\n")
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(template, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	a := &Artifact{Path: mkdirAll(t, dir, ".build", "main.dist"), Form: FormFlat}
	res, err := Seed(template, a, "config.toml")
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if res.ParseError != nil {
		t.Errorf("valid template reported parse error: %v", res.ParseError)
	}
	if want := filepath.Join(a.Path, "config.toml"); res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[model]\nname = \"gpt\"\n" {
		t.Errorf("seeded content = %q", data)
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), mtime)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestSeed_BundleUsesMacOSDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	template := filepath.Join(dir, "config.example.toml")
	writeFile(t, template, "debug = false\n")

	bundle := mkdirAll(t, dir, "main.app")
	macOS := mkdirAll(t, bundle, "Contents", "MacOS")

	res, err := Seed(template, &Artifact{Path: bundle, Form: FormBundle}, "config.toml")
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if want := filepath.Join(macOS, "config.toml"); res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
}

func TestSeed_MissingTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := &Artifact{Path: mkdirAll(t, dir, "main.dist"), Form: FormFlat}

	_, err := Seed(filepath.Join(dir, "config.example.toml"), a, "config.toml")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(a.Path, "config.toml")); !os.IsNotExist(err) {
		t.Error("no config should be written when the template is missing")
	}
}

func TestSeed_InvalidTOMLStillCopied(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	template := filepath.Join(dir, "config.example.toml")
	writeFile(t, template, "[model\nname = \n")
	a := &Artifact{Path: mkdirAll(t, dir, "main.dist"), Form: FormFlat}

	res, err := Seed(template, a, "config.toml")
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if res.ParseError == nil {
		t.Error("expected a parse error for invalid TOML")
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("invalid template should still be copied: %v", err)
	}
}

func TestSeed_TemplateUntouched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	template := filepath.Join(dir, "config.example.toml")
	writeFile(t, template, "key = 1\n")
	before, _ := os.Stat(template)

	a := &Artifact{Path: mkdirAll(t, dir, "main.dist"), Form: FormFlat}
	if _, err := Seed(template, a, "config.toml"); err != nil {
		t.Fatal(err)
	}
	// Seeding twice overwrites the earlier copy.
	if _, err := Seed(template, a, "config.toml"); err != nil {
		t.Fatal(err)
	}

	after, _ := os.Stat(template)
	data, _ := os.ReadFile(template)
	if string(data) != "key = 1\n" || !after.ModTime().Equal(before.ModTime()) {
		t.Error("template must not be modified")
	}
}
