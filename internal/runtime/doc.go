// SPDX-License-Identifier: MPL-2.0

// Package runtime runs the external processes the build pipeline depends on:
// interpreter probes, the package installer and the compiler backends.
//
// Every invocation is a blocking subprocess described by a Command and
// executed by a Runner. NativeRuntime is the production Runner; tests
// substitute a Runner that simulates the interpreter.
package runtime
