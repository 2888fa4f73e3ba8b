// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pybuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	stageDuration   *prom.HistogramVec
	buildDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	backendInstalls *prom.CounterVec
	lastBuild       *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg
// (a fresh registry when reg is nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual pipeline stages",
		Buckets:   prom.ExponentialBuckets(0.01, 4, 10),
	}, []string{"stage"})
	pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Total build duration by backend",
		Buckets:   prom.ExponentialBuckets(1, 2, 12),
	}, []string{"backend"})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_outcomes_total",
		Help:      "Build outcomes by backend and final status",
	}, []string{"backend", "outcome"})
	pr.backendInstalls = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "backend_installs_total",
		Help:      "On-demand backend installations by result",
	}, []string{"backend", "result"})
	pr.lastBuild = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "last_build_timestamp_seconds",
		Help:      "Unix time of the last finished build by backend",
	}, []string{"backend"})
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome, pr.backendInstalls, pr.lastBuild)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(backend string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(backend).Observe(d.Seconds())
	p.lastBuild.WithLabelValues(backend).SetToCurrentTime()
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(backend string, outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(backend, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncBackendInstall(backend string, success bool) {
	if p == nil || p.backendInstalls == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.backendInstalls.WithLabelValues(backend, res).Inc()
}

// WriteTextfile writes the current metrics to path in the text exposition
// format. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
