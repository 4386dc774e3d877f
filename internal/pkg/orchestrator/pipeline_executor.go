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

import (
	"context"
	"fmt"

	"github.com/visionflow/visionflow/pkg/log"
)

// PipelineExecutor walks a pipeline's stages in declared order. Stages run
// strictly sequentially; a failed optional stage is recorded and skipped
// while a failed required stage aborts the run.
type PipelineExecutor struct {
	router   *StageRouter
	executor *StageExecutor

	// OnStageStart, when set, is notified before each stage runs. Used by
	// the lifecycle manager to keep the persisted current stage fresh.
	OnStageStart func(executionID, stageID string)
}

// NewPipelineExecutor builds a pipeline executor.
func NewPipelineExecutor(router *StageRouter, executor *StageExecutor) *PipelineExecutor {
	return &PipelineExecutor{router: router, executor: executor}
}

// Execute runs all stages of the spec against the input. The returned
// snapshot always reflects whatever stages completed, even when err is
// non-nil. The error for a failed required stage wraps both
// ErrRequiredStageFailed and the stage's own failure cause.
func (p *PipelineExecutor) Execute(ctx context.Context, spec *PipelineSpec, executionID string, input any) (*RunSnapshot, error) {
	runCtx := NewContext(spec.ID, executionID, input)

	for i := range spec.Stages {
		stage := &spec.Stages[i]
		runCtx.SetCurrentStage(stage.ID)
		if p.OnStageStart != nil {
			p.OnStageStart(executionID, stage.ID)
		}

		if err := ctx.Err(); err != nil {
			runCtx.RecordError(stage.ID, err, StageMetrics{})
			runCtx.Finish()
			return runCtx.Snapshot(), fmt.Errorf("execution canceled before stage %q: %w", stage.ID, err)
		}

		res := p.runStage(ctx, runCtx, stage, spec)
		if res.Success {
			runCtx.RecordResult(stage.ID, res)
			log.Infow("stage completed",
				"executionId", executionID,
				"stageId", stage.ID,
				"service", res.ServiceUsed,
				"attempts", res.Metrics.Attempts,
				"durationMs", res.Metrics.DurationMs)
			continue
		}
		err := res.Err
		runCtx.RecordError(stage.ID, err, res.Metrics)

		if stage.Required {
			runCtx.Finish()
			log.Errorw("required stage failed",
				"executionId", executionID,
				"stageId", stage.ID,
				"error", err)
			return runCtx.Snapshot(), fmt.Errorf("%w: stage %q: %w", ErrRequiredStageFailed, stage.ID, err)
		}

		log.Warnw("optional stage failed, continuing",
			"executionId", executionID,
			"stageId", stage.ID,
			"error", err)
	}

	runCtx.SetCurrentStage("")
	runCtx.Finish()
	return runCtx.Snapshot(), nil
}

// runStage resolves input, routes candidates, and executes one stage.
func (p *PipelineExecutor) runStage(ctx context.Context, runCtx *Context, stage *Stage, spec *PipelineSpec) StageResult {
	stageInput, err := resolveStageInput(runCtx, stage)
	if err != nil {
		return StageResult{Err: err}
	}
	candidates, err := p.router.Route(ctx, stage, spec)
	if err != nil {
		return StageResult{Err: err}
	}
	return p.executor.Execute(ctx, stage, stageInput, spec, candidates)
}

// resolveStageInput picks the stage's input: the referenced stage's output
// when input.from is set, the declared default when that output is missing,
// and the pipeline's original input otherwise.
func resolveStageInput(runCtx *Context, stage *Stage) (any, error) {
	in := stage.Input
	if in == nil || in.From == "" {
		return runCtx.Input, nil
	}
	if out, ok := runCtx.Output(in.From); ok {
		return out, nil
	}
	if in.Default != nil {
		return in.Default, nil
	}
	return nil, fmt.Errorf("%w: stage %q requires output of stage %q", ErrStageInputUnresolved, stage.ID, in.From)
}
