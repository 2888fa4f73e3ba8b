// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"

	"github.com/charmbracelet/glamour"
	xslices "golang.org/x/exp/slices"
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is Markdown guidance rendered to the terminal.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a catalog entry: guidance for one well-known failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

const (
	InterpreterNotFoundId Id = iota + 1
	BackendNotInstalledId
	BackendInstallFailedId
	ManifestLoadFailedId
	UnknownBackendId
	EntryModuleNotFoundId
	CompilationFailedId
	OutputNotLocatedId
	TemplateNotFoundId
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return xslices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return xslices.Clone(i.extLinks)
}

// Render renders the guidance with the given glamour style ("dark", "light", "notty").
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	interpreterNotFoundIssue = &Issue{
		id: InterpreterNotFoundId,
		mdMsg: `
# Python interpreter not found!

pybuild runs the compiler backends through a Python interpreter, and none
could be found.

## Things you can try:
- Install Python 3 and make sure ` + "`python3`" + ` or ` + "`python`" + ` is on your PATH
- Point pybuild at a specific interpreter (for example a virtualenv):
~~~
$ PYBUILD_PYTHON=.venv/bin/python pybuild
~~~
- Or set it in pybuild.cue:
~~~cue
python: ".venv/bin/python"
~~~`,
		extLinks: []HttpLink{"https://www.python.org/downloads/"},
	}

	backendNotInstalledIssue = &Issue{
		id: BackendNotInstalledId,
		mdMsg: `
# Backend not installed!

The selected backend cannot be imported by the configured interpreter and
automatic installation was disabled with ` + "`--no-install`" + `.

## Things you can try:
- Install it yourself:
~~~
$ python -m pip install nuitka zstandard
$ python -m pip install pyinstaller
~~~
- Run without ` + "`--no-install`" + ` to let pybuild install it`,
	}

	backendInstallFailedIssue = &Issue{
		id: BackendInstallFailedId,
		mdMsg: `
# Backend installation failed!

pybuild tried to install the backend with pip and the installer failed.
Nothing was built.

## Things you can try:
- Read the pip output above for the actual cause
- Check network access to your package index
- Make sure the interpreter's environment is writable (activate a virtualenv)
- Upgrade pip:
~~~
$ python -m pip install --upgrade pip
~~~`,
	}

	manifestLoadFailedIssue = &Issue{
		id: ManifestLoadFailedId,
		mdMsg: `
# Failed to load the build manifest!

pybuild.cue contains invalid CUE or values rejected by the schema.

## Things you can try:
- Check the error above for the offending field path
- Print the effective manifest with defaults applied:
~~~
$ pybuild manifest show
~~~
- Regenerate a default manifest to compare against:
~~~
$ pybuild manifest init --force
~~~`,
	}

	unknownBackendIssue = &Issue{
		id: UnknownBackendId,
		mdMsg: `
# Unknown backend!

Supported backends are ` + "`nuitka`" + ` (ahead-of-time compiler) and
` + "`pyinstaller`" + ` (bundler).

~~~
$ pybuild build --backend pyinstaller
~~~`,
	}

	entryModuleNotFoundIssue = &Issue{
		id: EntryModuleNotFoundId,
		mdMsg: `
# Entry module not found!

The module the backend should compile does not exist, so no build was
attempted.

## Things you can try:
- Run pybuild from the project root, or pass ` + "`-C <dir>`" + `
- Check the ` + "`entry`" + ` field in pybuild.cue`,
	}

	compilationFailedIssue = &Issue{
		id: CompilationFailedId,
		mdMsg: `
# Compilation failed!

The backend exited with a non-zero status. Native compilation cannot be
resumed from a partial state, so pybuild stopped without normalizing any
output.

## Things you can try:
- Scroll up: the backend's own output explains the failure
- A module loaded dynamically may be missing from the force-include list:
~~~cue
include: packages: ["my_plugin_package"]
~~~
- Inspect the exact command line:
~~~
$ pybuild plan
~~~`,
	}

	outputNotLocatedIssue = &Issue{
		id: OutputNotLocatedId,
		mdMsg: `
# No build output located!

The backend reported success but none of its expected output folders
exist in the output root. Config seeding was skipped.

## Things you can try:
- Check that the backend was not configured for single-file output
- Run ` + "`pybuild plan`" + ` to see which paths are probed`,
	}

	templateNotFoundIssue = &Issue{
		id: TemplateNotFoundId,
		mdMsg: `
# Configuration template not found!

The build succeeded, but no configuration was seeded into it. Users of
the artifact must supply their own configuration file.

## Things you can try:
- Add the template at the path configured as ` + "`config_template`" + `
  (default: ` + "`config.example.toml`" + `)`,
	}

	issues = map[Id]*Issue{
		interpreterNotFoundIssue.Id():  interpreterNotFoundIssue,
		backendNotInstalledIssue.Id():  backendNotInstalledIssue,
		backendInstallFailedIssue.Id(): backendInstallFailedIssue,
		manifestLoadFailedIssue.Id():   manifestLoadFailedIssue,
		unknownBackendIssue.Id():       unknownBackendIssue,
		entryModuleNotFoundIssue.Id():  entryModuleNotFoundIssue,
		compilationFailedIssue.Id():    compilationFailedIssue,
		outputNotLocatedIssue.Id():     outputNotLocatedIssue,
		templateNotFoundIssue.Id():     templateNotFoundIssue,
	}
)

// Values returns all catalog entries ordered by ID.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
