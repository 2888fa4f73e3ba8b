// SPDX-License-Identifier: MPL-2.0

// Package workspace removes the leftovers of earlier builds and prepares the
// output root.
package workspace
