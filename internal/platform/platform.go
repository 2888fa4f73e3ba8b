// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// OS name constants matching runtime.GOOS values.
const (
	Windows OS = "windows"
	Darwin  OS = "darwin"
	Linux   OS = "linux"
)

// ErrUnsupportedOS is the sentinel error wrapped by UnsupportedOSError.
var ErrUnsupportedOS = errors.New("unsupported operating system")

type (
	// OS is a host operating system as reported by runtime.GOOS.
	OS string

	// UnsupportedOSError is returned by Parse for names outside the known set.
	UnsupportedOSError struct {
		Value string
	}
)

// windowsReservedNames cannot be used as file or directory names on Windows,
// with or without an extension.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Error implements the error interface.
func (e *UnsupportedOSError) Error() string {
	return fmt.Sprintf("unsupported operating system %q (supported: windows, darwin, linux)", e.Value)
}

// Unwrap returns ErrUnsupportedOS for errors.Is.
func (e *UnsupportedOSError) Unwrap() error { return ErrUnsupportedOS }

// Host returns the operating system the binary is running on.
// Unknown Unix flavours are reported as Linux since they share its flags.
func Host() OS {
	switch goos := OS(runtime.GOOS); goos {
	case Windows, Darwin:
		return goos
	default:
		return Linux
	}
}

// Parse converts a user-supplied name ("macos" is accepted for Darwin).
func Parse(name string) (OS, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows":
		return Windows, nil
	case "darwin", "macos":
		return Darwin, nil
	case "linux":
		return Linux, nil
	default:
		return "", &UnsupportedOSError{Value: name}
	}
}

// String returns the GOOS name.
func (o OS) String() string { return string(o) }

// CreatesAppBundles reports whether backends are asked for a platform
// application bundle (.app) rather than a flat folder.
func (o OS) CreatesAppBundles() bool { return o == Darwin }

// SupportsIcons reports whether backends can embed an application icon.
func (o OS) SupportsIcons() bool { return o == Windows || o == Darwin }

// IsWindowsReservedName reports whether name (ignoring any extension) is a
// reserved device name on Windows.
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.Index(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return windowsReservedNames[upper]
}
