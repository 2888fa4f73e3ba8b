// SPDX-License-Identifier: MPL-2.0

//go:build windows

package platform

import "golang.org/x/sys/windows"

const codePageUTF8 = 65001

// EnableUTF8Console switches the attached console's output code page to UTF-8.
// Consoles that refuse the change keep their current code page.
func EnableUTF8Console() error {
	return windows.SetConsoleOutputCP(codePageUTF8)
}
