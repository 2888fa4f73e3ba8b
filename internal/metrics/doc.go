// SPDX-License-Identifier: MPL-2.0

// Package metrics records build and stage observations.
//
// The pipeline reports through the Recorder interface. NoopRecorder is the
// default; PrometheusRecorder keeps the observations in a registry that the
// CLI writes out in the node-exporter textfile format when --metrics-file is
// given.
package metrics
