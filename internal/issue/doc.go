// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries what the build was doing, which file or tool was
// involved and how to fix it. Errors that map to a well-known failure also
// reference a catalog entry whose Markdown guidance the CLI renders with
// glamour.
package issue
