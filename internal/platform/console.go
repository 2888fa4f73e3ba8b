// SPDX-License-Identifier: MPL-2.0

package platform

// ChildEnv returns environment entries that make a Python child process emit
// UTF-8 on the given OS. Only Windows consoles need it.
func ChildEnv(o OS) []string {
	if o == Windows {
		return []string{"PYTHONIOENCODING=utf-8"}
	}
	return nil
}
