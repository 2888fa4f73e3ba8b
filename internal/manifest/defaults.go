// SPDX-License-Identifier: MPL-2.0

package manifest

// localPackages are the application's own packages. The agent loads tools
// and chat providers by name, so static tracing misses them.
var localPackages = []string{"agent", "chat", "tools", "utils"}

// thirdPartyPackages covers provider plugins selected by configuration
// strings, lazily loaded submodules, and libraries that import dynamically.
var thirdPartyPackages = []string{
	"langchain",
	"langchain_core",
	"langchain_core.load",
	"langchain_core.runnables",
	"langchain_core.tracers",
	"langchain_core.callbacks",
	"langchain_community",
	"langgraph",
	"langgraph_checkpoint_sqlite",
	"deepagents",
	"langchain_deepseek",
	"langchain_openai",
	"langchain_ollama",
	"langchain_gemini",
	"langchain_anthropic",
	"langchain_groq",
	"langchain_mcp_adapters",
	"mcp",
	"pydantic",
	"pydantic_core",
	"httpx",
	"openai",
	"anthropic",
	"rich",
	"aiosqlite",
	"tavily",
	"prompt_toolkit",
}

// DefaultConfig returns the manifest used when a project has no pybuild.cue.
func DefaultConfig() *Manifest {
	packages := make([]string, 0, len(localPackages)+len(thirdPartyPackages))
	packages = append(packages, localPackages...)
	packages = append(packages, thirdPartyPackages...)

	return &Manifest{
		Entry:          "main.py",
		AppName:        "captain_cmd",
		Backend:        BackendNuitka,
		OutputDir:      ".build",
		WorkDir:        "build",
		CanonicalName:  "main",
		ConfigTemplate: "config.example.toml",
		ConfigName:     "config.toml",
		EnvFile:        ".env",
		Include: IncludeSpec{
			Packages: packages,
			Modules: []string{
				"langchain_core.load.dump",
				"langchain_core.load.load",
				"langchain_core.load.serializable",
			},
		},
		Exclude: []string{"aiosqlite.tests", "unittest", "doctest"},
	}
}
