// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package platform

// EnableUTF8Console is a no-op outside Windows; terminals there are UTF-8 already.
func EnableUTF8Console() error { return nil }
