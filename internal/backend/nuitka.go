// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"path/filepath"

	"github.com/captaincmd/pybuild/internal/artifact"
	"github.com/captaincmd/pybuild/internal/platform"
)

type nuitkaBackend struct{}

func (nuitkaBackend) Name() Name { return Nuitka }

func (nuitkaBackend) Module() string { return "nuitka" }

// zstandard enables Nuitka's payload compression.
func (nuitkaBackend) InstallPackages() []string { return []string{"nuitka", "zstandard"} }

func (nuitkaBackend) Args(req Request) []string {
	m := req.Manifest
	args := []string{
		"-m", "nuitka",
		"--standalone",
		"--assume-yes-for-downloads",
		"--output-dir=" + req.OutputDir(),
		"--remove-output",
		"--show-progress",
		"--show-memory",
		"--follow-imports",
	}
	for _, pkg := range m.Include.Packages {
		args = append(args, "--include-package="+pkg)
	}
	for _, mod := range m.Include.Modules {
		args = append(args, "--include-module="+mod)
	}
	args = append(args,
		"--noinclude-pytest-mode=nofollow",
		"--noinclude-setuptools-mode=nofollow",
	)
	for _, ex := range m.Exclude {
		args = append(args, "--nofollow-import-to="+ex)
	}

	if req.Platform.CreatesAppBundles() {
		args = append(args, "--macos-create-app-bundle")
	}
	if icon, ok := req.icon(); ok {
		switch req.Platform {
		case platform.Windows:
			args = append(args, "--windows-icon-from-ico="+icon)
		case platform.Darwin:
			args = append(args, "--macos-app-icon="+icon)
		}
	}

	return append(args, nativePath(m.Entry))
}

// ScratchPaths covers Nuitka's intermediate folders, which land next to the
// entry module when --remove-output is interrupted or --output-dir is unset.
func (nuitkaBackend) ScratchPaths(req Request) []string {
	stem := req.Manifest.EntryStem()
	return []string{
		stem + ".build",
		stem + ".dist",
		stem + ".app",
		stem + ".onefile-build",
	}
}

// Locators probe <root>/<entry-stem>.app, then <root>/<entry-stem>.dist.
func (nuitkaBackend) Locators(req Request) []artifact.Locator {
	root := req.OutputRoot()
	stem := req.Manifest.EntryStem()
	return []artifact.Locator{
		artifact.BundleAt(filepath.Join(root, stem+".app")),
		artifact.FlatAt(filepath.Join(root, stem+".dist")),
	}
}
