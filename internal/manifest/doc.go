// SPDX-License-Identifier: MPL-2.0

// Package manifest loads the build manifest using Viper with CUE as the file format.
//
// The manifest is read from pybuild.cue in the project directory (or the
// file given with --manifest), validated against the embedded schema
// (manifest_schema.cue), merged over built-in defaults and finally
// overridden by PYBUILD_* environment variables. A project without a
// manifest builds with the defaults alone.
//
// The manifest carries the single force-include list that both compiler
// backends consume: packages and modules their static import tracing cannot
// discover because the application loads them through configuration strings.
package manifest
