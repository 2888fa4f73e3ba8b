// SPDX-License-Identifier: MPL-2.0

// Package artifact maps backend output onto the canonical artifact layout and
// seeds the runtime configuration into it.
//
// A build yields one of two forms: a flat directory holding the executable
// and its libraries, or a macOS application bundle. Whatever name the backend
// chose, the normalized artifact is <root>/<canonical>.dist or
// <root>/<canonical>.app.
package artifact
