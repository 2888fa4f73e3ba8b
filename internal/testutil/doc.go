// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by package tests and CLI scripts.
//
// FakeRunner and SimulatePython stand in for a Python interpreter with the
// compiler backends installed. They understand the handful of invocations
// pybuild issues (module probes, pip, Nuitka and PyInstaller) and lay out
// output directories the way the real tools do, so the pipeline can be
// exercised end to end without Python.
package testutil
