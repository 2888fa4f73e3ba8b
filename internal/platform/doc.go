// SPDX-License-Identifier: MPL-2.0

// Package platform identifies the host operating system and isolates the
// platform-specific setup the build pipeline needs: which OS-specific
// backend flags apply, whether the backend emits an application bundle,
// Windows reserved file names, and UTF-8 console output.
package platform
