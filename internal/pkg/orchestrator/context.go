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

package orchestrator

import "time"

// StageError records why a stage failed, keyed by stage id in the snapshot.
type StageError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RunMetrics aggregates timing and service usage over one execution.
type RunMetrics struct {
	StageResults    map[string]StageMetrics `json:"stageResults"`
	ServicesUsed    map[string]int          `json:"servicesUsed"`
	StartTime       time.Time               `json:"startTime"`
	EndTime         time.Time               `json:"endTime"`
	TotalDurationMs int64                   `json:"totalDurationMs"`
}

// RunSnapshot is the externally visible state of one execution: stage
// outputs, per-stage errors, and run metrics.
type RunSnapshot struct {
	Output  map[string]any        `json:"output"`
	Errors  map[string]StageError `json:"errors,omitempty"`
	Metrics RunMetrics            `json:"metrics"`
}

// Context is the mutable state of a single pipeline execution. It is owned
// by exactly one executor goroutine for its whole lifetime and must not be
// shared across executions.
type Context struct {
	PipelineID   string
	ExecutionID  string
	Input        any
	currentStage string

	outputs map[string]any
	errors  map[string]StageError
	metrics RunMetrics
}

// NewContext starts a fresh execution context and stamps its start time.
func NewContext(pipelineID, executionID string, input any) *Context {
	return &Context{
		PipelineID:  pipelineID,
		ExecutionID: executionID,
		Input:       input,
		outputs:     make(map[string]any),
		errors:      make(map[string]StageError),
		metrics: RunMetrics{
			StageResults: make(map[string]StageMetrics),
			ServicesUsed: make(map[string]int),
			StartTime:    time.Now(),
		},
	}
}

// SetCurrentStage marks the stage about to run.
func (c *Context) SetCurrentStage(stageID string) {
	c.currentStage = stageID
}

// CurrentStage returns the id of the stage currently running, empty when idle.
func (c *Context) CurrentStage() string {
	return c.currentStage
}

// RecordResult stores a successful stage's output and metrics.
func (c *Context) RecordResult(stageID string, res StageResult) {
	c.outputs[stageID] = res.Output
	c.metrics.StageResults[stageID] = res.Metrics
	if res.ServiceUsed != "" {
		c.metrics.ServicesUsed[res.ServiceUsed]++
	}
}

// RecordError stores a stage failure. Metrics for the failed attempt
// sequence are kept so partial work remains observable.
func (c *Context) RecordError(stageID string, err error, m StageMetrics) {
	c.errors[stageID] = StageError{
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
	c.metrics.StageResults[stageID] = m
}

// Output returns a prior stage's output and whether it exists.
func (c *Context) Output(stageID string) (any, bool) {
	out, ok := c.outputs[stageID]
	return out, ok
}

// Finish stamps the end time and computes the total duration.
func (c *Context) Finish() {
	c.metrics.EndTime = time.Now()
	c.metrics.TotalDurationMs = c.metrics.EndTime.Sub(c.metrics.StartTime).Milliseconds()
}

// Snapshot copies the context state into an immutable view for persistence
// and API responses.
func (c *Context) Snapshot() *RunSnapshot {
	snap := &RunSnapshot{
		Output:  make(map[string]any, len(c.outputs)),
		Metrics: RunMetrics{
			StageResults:    make(map[string]StageMetrics, len(c.metrics.StageResults)),
			ServicesUsed:    make(map[string]int, len(c.metrics.ServicesUsed)),
			StartTime:       c.metrics.StartTime,
			EndTime:         c.metrics.EndTime,
			TotalDurationMs: c.metrics.TotalDurationMs,
		},
	}
	for k, v := range c.outputs {
		snap.Output[k] = v
	}
	for k, v := range c.metrics.StageResults {
		snap.Metrics.StageResults[k] = v
	}
	for k, v := range c.metrics.ServicesUsed {
		snap.Metrics.ServicesUsed[k] = v
	}
	if len(c.errors) > 0 {
		snap.Errors = make(map[string]StageError, len(c.errors))
		for k, v := range c.errors {
			snap.Errors[k] = v
		}
	}
	return snap
}
