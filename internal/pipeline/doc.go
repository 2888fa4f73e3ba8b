// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs one build end to end: clean the workspace, make sure
// the backend is importable, invoke it, normalize its output and seed the
// runtime configuration. Stages run strictly in order and never loop back.
//
// Fatal failures are returned as *StageError, whose Kind maps to the process
// exit code. Non-fatal problems (cleanup failures, a missing output, a
// missing config template) are collected as warnings on the Result.
package pipeline
