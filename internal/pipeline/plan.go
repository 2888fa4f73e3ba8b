// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"path/filepath"
	"slices"

	"github.com/captaincmd/pybuild/internal/artifact"
	"github.com/captaincmd/pybuild/internal/backend"
	"github.com/captaincmd/pybuild/internal/platform"
	"github.com/captaincmd/pybuild/internal/python"
	"github.com/captaincmd/pybuild/internal/runtime"
)

type (
	// Candidate is one place the backend may leave its output and where it
	// ends up after normalization.
	Candidate struct {
		Path      string
		Form      artifact.Form
		Canonical string
		// SeedPath is where the configuration is written when the backend
		// produces the expected layout for this form (see
		// artifact.ExpectedConfigDir). A bundle lacking Contents/MacOS is
		// seeded at its root instead.
		SeedPath string
	}

	// Plan is what Run would do, computed without changing the filesystem
	// or spawning processes.
	Plan struct {
		Backend  backend.Name
		Platform platform.OS
		// Python is the interpreter Run would use; empty when PythonErr is set.
		Python    string
		PythonErr error
		Clean     []string
		// OutputRoot is recreated empty after cleaning.
		OutputRoot string
		Install    runtime.Command
		Command    runtime.Command
		Candidates []Candidate
		Template   string
	}
)

// CleanTargets lists every path the cleaning stage removes: the output root,
// the work dir, every backend's scratch paths, canonical artifacts left in
// the project root and the manifest's extra clean paths. Duplicates are
// dropped; order is stable.
func CleanTargets(req Request) []string {
	m := req.Manifest
	dir := req.ProjectDir

	targets := []string{m.OutputRoot(dir), m.WorkRoot(dir)}

	breq := req.backendRequest()
	for _, b := range backend.All() {
		for _, p := range b.ScratchPaths(breq) {
			targets = append(targets, m.Path(dir, p))
		}
	}
	for _, f := range []artifact.Form{artifact.FormFlat, artifact.FormBundle} {
		targets = append(targets, artifact.CanonicalPath(dir, m.CanonicalName, f))
	}
	for _, p := range m.Clean {
		targets = append(targets, m.Path(dir, p))
	}

	seen := make(map[string]bool, len(targets))
	out := targets[:0]
	for _, t := range targets {
		t = filepath.Clean(t)
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return slices.Clip(out)
}

// Plan resolves req into the commands and paths Run would use.
func (p *Pipeline) Plan(req Request) (*Plan, error) {
	req, err := req.resolve()
	if err != nil {
		return nil, err
	}

	b := req.Backend
	m := req.Manifest
	breq := req.backendRequest()

	plan := &Plan{
		Backend:    b.Name(),
		Platform:   req.Platform,
		Clean:      CleanTargets(req),
		OutputRoot: m.OutputRoot(req.ProjectDir),
		Template:   m.Path(req.ProjectDir, m.ConfigTemplate),
	}

	interp, err := python.Resolve(m.Python, req.Platform, p.lookPath)
	if err != nil {
		plan.PythonErr = err
		interp = "python"
	} else {
		plan.Python = interp
	}

	plan.Install = python.NewEnsurer(p.runner, interp).InstallCommand(b.InstallPackages())
	plan.Command = backend.NewInvoker(p.runner).Command(interp, b, breq)

	for _, l := range b.Locators(breq) {
		path, _ := l.Locate()
		canonical := artifact.CanonicalPath(plan.OutputRoot, m.CanonicalName, l.Form())
		seedDir := artifact.ExpectedConfigDir(canonical, l.Form())
		plan.Candidates = append(plan.Candidates, Candidate{
			Path:      path,
			Form:      l.Form(),
			Canonical: canonical,
			SeedPath:  filepath.Join(seedDir, m.ConfigName),
		})
	}

	return plan, nil
}
