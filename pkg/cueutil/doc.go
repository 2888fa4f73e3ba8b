// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates user-authored CUE documents against an embedded
// schema definition and formats CUE errors with JSON-path prefixes.
//
// The flow is always the same:
//
//  1. Compile the embedded schema
//  2. Compile the user document and unify it with the schema definition
//  3. Validate, then decode into whatever shape the caller needs
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schema string
//
//	unified, err := cueutil.Unify(schema, data, "#Manifest", "pybuild.cue")
//	if err != nil {
//	    return err // error includes the offending field path
//	}
//	var m map[string]any
//	err = unified.Decode(&m)
package cueutil
