// Copyright 2025 VisionFlow Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics holds the orchestration engine collectors.
// A nil *PipelineMetrics is a valid no-op receiver so callers do not
// need to guard every observation site.
type PipelineMetrics struct {
	executionsStarted  prometheus.Counter
	executionsFinished *prometheus.CounterVec
	stageAttempts      *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
}

// NewPipelineMetrics creates the orchestration collectors.
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		executionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visionflow",
			Subsystem: "pipeline",
			Name:      "executions_started_total",
			Help:      "Total number of pipeline executions started.",
		}),
		executionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visionflow",
			Subsystem: "pipeline",
			Name:      "executions_finished_total",
			Help:      "Total number of pipeline executions finished, by terminal status.",
		}, []string{"status"}),
		stageAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visionflow",
			Subsystem: "pipeline",
			Name:      "stage_attempts_total",
			Help:      "Total number of stage service attempts, by service type and outcome.",
		}, []string{"service_type", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "visionflow",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock stage execution duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"service_type"}),
	}
}

// Describe implements prometheus.Collector.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.executionsStarted.Describe(ch)
	m.executionsFinished.Describe(ch)
	m.stageAttempts.Describe(ch)
	m.stageDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.executionsStarted.Collect(ch)
	m.executionsFinished.Collect(ch)
	m.stageAttempts.Collect(ch)
	m.stageDuration.Collect(ch)
}

// ExecutionStarted records the start of a pipeline execution.
func (m *PipelineMetrics) ExecutionStarted() {
	if m == nil {
		return
	}
	m.executionsStarted.Inc()
}

// ExecutionFinished records a terminal execution status.
func (m *PipelineMetrics) ExecutionFinished(status string) {
	if m == nil {
		return
	}
	m.executionsFinished.WithLabelValues(status).Inc()
}

// StageAttempt records a single service attempt for a stage.
func (m *PipelineMetrics) StageAttempt(serviceType, outcome string) {
	if m == nil {
		return
	}
	m.stageAttempts.WithLabelValues(serviceType, outcome).Inc()
}

// StageDuration records the wall-clock duration of one stage.
func (m *PipelineMetrics) StageDuration(serviceType string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(serviceType).Observe(seconds)
}
