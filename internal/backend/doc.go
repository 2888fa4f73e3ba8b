// SPDX-License-Identifier: MPL-2.0

// Package backend describes the native-compiler backends pybuild drives.
//
// Each Backend knows how its Python module is installed, the command line
// that compiles the entry module with the shared force-include manifest, the
// scratch paths it leaves behind and where its output lands. The Invoker
// runs that command line as one blocking subprocess.
package backend
