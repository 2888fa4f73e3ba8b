// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"strings"
)

// GenerateCUE renders m as a pybuild.cue document accepted by the schema.
func GenerateCUE(m *Manifest) string {
	var sb strings.Builder

	sb.WriteString("// pybuild manifest\n")
	sb.WriteString("// Shared by the nuitka and pyinstaller backends.\n\n")

	sb.WriteString(fmt.Sprintf("entry:           %q\n", m.Entry))
	sb.WriteString(fmt.Sprintf("app_name:        %q\n", m.AppName))
	sb.WriteString(fmt.Sprintf("backend:         %q\n", m.Backend))
	if m.Python != "" {
		sb.WriteString(fmt.Sprintf("python:          %q\n", m.Python))
	}
	sb.WriteString(fmt.Sprintf("output_dir:      %q\n", m.OutputDir))
	sb.WriteString(fmt.Sprintf("work_dir:        %q\n", m.WorkDir))
	sb.WriteString(fmt.Sprintf("canonical_name:  %q\n", m.CanonicalName))
	sb.WriteString(fmt.Sprintf("config_template: %q\n", m.ConfigTemplate))
	sb.WriteString(fmt.Sprintf("config_name:     %q\n", m.ConfigName))
	if m.EnvFile != "" {
		sb.WriteString(fmt.Sprintf("env_file:        %q\n", m.EnvFile))
	}
	if m.Icon != "" {
		sb.WriteString(fmt.Sprintf("icon:            %q\n", m.Icon))
	}

	sb.WriteString("\ninclude: {\n")
	writeList(&sb, "\t", "packages", m.Include.Packages)
	writeList(&sb, "\t", "modules", m.Include.Modules)
	sb.WriteString("}\n\n")

	writeList(&sb, "", "exclude", m.Exclude)
	if len(m.Clean) > 0 {
		writeList(&sb, "", "clean", m.Clean)
	}

	return sb.String()
}

func writeList(sb *strings.Builder, indent, key string, values []string) {
	if len(values) == 0 {
		sb.WriteString(fmt.Sprintf("%s%s: []\n", indent, key))
		return
	}
	sb.WriteString(fmt.Sprintf("%s%s: [\n", indent, key))
	for _, v := range values {
		sb.WriteString(fmt.Sprintf("%s\t%q,\n", indent, v))
	}
	sb.WriteString(fmt.Sprintf("%s]\n", indent))
}
