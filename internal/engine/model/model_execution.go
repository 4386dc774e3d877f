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

package model

import (
	"time"

	"github.com/bytedance/sonic"

	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/statemachine"
)

// Execution pipeline execution record table
type Execution struct {
	BaseModel
	ExecutionId  string     `gorm:"column:execution_id;uniqueIndex" json:"executionId"`
	ConfigId     string     `gorm:"column:config_id;index" json:"configId"`
	PipelineName string     `gorm:"column:pipeline_name" json:"pipelineName"`
	UserId       string     `gorm:"column:user_id" json:"userId"`
	Status       string     `gorm:"column:status" json:"status"` // pending, running, completed, failed
	Input        string     `gorm:"column:input;type:json" json:"-"`
	Output       string     `gorm:"column:output;type:json" json:"-"`
	Errors       string     `gorm:"column:errors;type:json" json:"-"`
	Metrics      string     `gorm:"column:metrics;type:json" json:"-"`
	ErrorMsg     string     `gorm:"column:error_msg" json:"errorMsg"`
	CurrentStage string     `gorm:"column:current_stage" json:"currentStage"`
	StartTime    *time.Time `gorm:"column:start_time" json:"startTime"`
	EndTime      *time.Time `gorm:"column:end_time" json:"endTime"`
	Duration     int64      `gorm:"column:duration" json:"duration"` // milliseconds
}

func (Execution) TableName() string {
	return "t_execution"
}

// ApplySnapshot encodes the run snapshot into the record's JSON columns.
func (e *Execution) ApplySnapshot(snap *orchestrator.RunSnapshot) error {
	output, err := sonic.MarshalString(snap.Output)
	if err != nil {
		return err
	}
	metricsJSON, err := sonic.MarshalString(snap.Metrics)
	if err != nil {
		return err
	}
	e.Output = output
	e.Metrics = metricsJSON
	e.Duration = snap.Metrics.TotalDurationMs
	if len(snap.Errors) > 0 {
		errorsJSON, err := sonic.MarshalString(snap.Errors)
		if err != nil {
			return err
		}
		e.Errors = errorsJSON
	}
	if !snap.Metrics.EndTime.IsZero() {
		end := snap.Metrics.EndTime
		e.EndTime = &end
	}
	return nil
}

// ExecutionDetail response for execution status queries
type ExecutionDetail struct {
	Execution
	Output  map[string]any                             `json:"output,omitempty"`
	Errors  map[string]orchestrator.StageError         `json:"errors,omitempty"`
	Metrics *orchestrator.RunMetrics                   `json:"metrics,omitempty"`
}

// Detail expands the JSON columns for API responses.
func (e *Execution) Detail() (*ExecutionDetail, error) {
	detail := &ExecutionDetail{Execution: *e}
	if e.Output != "" {
		if err := sonic.UnmarshalString(e.Output, &detail.Output); err != nil {
			return nil, err
		}
	}
	if e.Errors != "" {
		if err := sonic.UnmarshalString(e.Errors, &detail.Errors); err != nil {
			return nil, err
		}
	}
	if e.Metrics != "" {
		var m orchestrator.RunMetrics
		if err := sonic.UnmarshalString(e.Metrics, &m); err != nil {
			return nil, err
		}
		detail.Metrics = &m
	}
	return detail, nil
}

// RunPipelineReq request for starting a pipeline execution
type RunPipelineReq struct {
	ConfigId string `json:"configId,omitempty"`
	UserId   string `json:"userId,omitempty"`
	Input    any    `json:"input"`
	// ForceSync blocks until the run reaches a terminal status. By default
	// the call returns immediately with a pending execution id.
	ForceSync bool `json:"forceSync,omitempty"`
}

// RunPipelineResp response for starting a pipeline execution
type RunPipelineResp struct {
	ExecutionId string `json:"executionId"`
	Status      string `json:"status"`
	// Result carries the per-stage outputs of a synchronous run.
	Result map[string]any `json:"result,omitempty"`
}

// CanTransitionTo reports whether the record may move to the target status.
func (e *Execution) CanTransitionTo(target statemachine.ExecutionStatus) bool {
	sm := statemachine.NewExecutionStateMachine(statemachine.ExecutionStatus(e.Status))
	return sm.CanTransition(statemachine.ExecutionStatus(e.Status), target)
}
