// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"path/filepath"

	"github.com/captaincmd/pybuild/internal/artifact"
)

type pyinstallerBackend struct{}

func (pyinstallerBackend) Name() Name { return PyInstaller }

func (pyinstallerBackend) Module() string { return "PyInstaller" }

func (pyinstallerBackend) InstallPackages() []string { return []string{"pyinstaller"} }

// Args sends work and spec files to the work dir so the output root only
// ever holds the bundle.
func (pyinstallerBackend) Args(req Request) []string {
	m := req.Manifest
	work := req.WorkDir()
	args := []string{
		"-m", "PyInstaller",
		"--clean",
		"--noconfirm",
		"--console",
		"--name=" + m.AppName,
		"--distpath=" + req.OutputDir(),
		"--workpath=" + filepath.Join(work, "pyinstaller-work"),
		"--specpath=" + work,
	}
	for _, pkg := range m.Include.Packages {
		args = append(args, "--collect-all="+pkg)
	}
	for _, mod := range m.Include.Modules {
		args = append(args, "--hidden-import="+mod)
	}
	for _, ex := range m.Exclude {
		args = append(args, "--exclude-module="+ex)
	}
	if icon, ok := req.icon(); ok {
		args = append(args, "--icon="+iconFromSpecPath(req, icon))
	}

	return append(args, nativePath(m.Entry))
}

// ScratchPaths covers PyInstaller's defaults for runs without explicit
// paths: dist/, build/ and <app>.spec in the project directory.
func (pyinstallerBackend) ScratchPaths(req Request) []string {
	return []string{
		"dist",
		"build",
		req.Manifest.AppName + ".spec",
	}
}

// Locators probe <root>/<app>.app, then <root>/<app>.
func (pyinstallerBackend) Locators(req Request) []artifact.Locator {
	root := req.OutputRoot()
	name := req.Manifest.AppName
	return []artifact.Locator{
		artifact.BundleAt(filepath.Join(root, name+".app")),
		artifact.FlatAt(filepath.Join(root, name)),
	}
}

// iconFromSpecPath makes a relative icon absolute: PyInstaller resolves
// resource paths against --specpath, not the working directory.
func iconFromSpecPath(req Request, icon string) string {
	if filepath.IsAbs(icon) {
		return icon
	}
	return filepath.Join(req.ProjectDir, icon)
}
