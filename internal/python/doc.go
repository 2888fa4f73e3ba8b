// SPDX-License-Identifier: MPL-2.0

// Package python locates the interpreter that drives the compiler backends
// and makes sure a backend is importable by it, installing it with pip when
// allowed.
package python
