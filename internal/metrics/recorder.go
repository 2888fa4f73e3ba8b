// SPDX-License-Identifier: MPL-2.0

package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

// BuildOutcomeLabel enumerates final build outcomes.
type BuildOutcomeLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultFatal   ResultLabel = "fatal"
	ResultSkipped ResultLabel = "skipped"

	OutcomeSuccess  BuildOutcomeLabel = "success"
	OutcomeWarning  BuildOutcomeLabel = "warning"
	OutcomeFailed   BuildOutcomeLabel = "failed"
	OutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for build and stage metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(backend string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(backend string, outcome BuildOutcomeLabel)
	IncBackendInstall(backend string, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel) {}
func (NoopRecorder) IncBuildOutcome(string, BuildOutcomeLabel) {}
func (NoopRecorder) IncBackendInstall(string, bool) {}
