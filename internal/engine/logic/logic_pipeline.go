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

package logic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/engine/repo"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/id"
	"github.com/visionflow/visionflow/pkg/log"
	"github.com/visionflow/visionflow/pkg/metrics"
	"github.com/visionflow/visionflow/pkg/safe"
	"github.com/visionflow/visionflow/pkg/statemachine"
)

// PipelineLogic is the execution lifecycle manager: it resolves a
// configuration, owns the execution record through its status transitions,
// and drives the pipeline executor synchronously or in the background.
type PipelineLogic struct {
	repos    *repo.Repositories
	executor *orchestrator.PipelineExecutor
	metrics  *metrics.PipelineMetrics

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewPipelineLogic(repos *repo.Repositories, invoker orchestrator.ServiceInvoker, defaultStageTimeout time.Duration, m *metrics.PipelineMetrics) *PipelineLogic {
	pl := &PipelineLogic{
		repos:   repos,
		metrics: m,
		cancels: make(map[string]context.CancelFunc),
	}
	router := orchestrator.NewStageRouter(&registryCatalog{repo: repos.ServiceRegistry})
	stageExec := orchestrator.NewStageExecutor(invoker, defaultStageTimeout, m)
	pl.executor = orchestrator.NewPipelineExecutor(router, stageExec)
	pl.executor.OnStageStart = func(executionId, stageId string) {
		if err := repos.Execution.SetCurrentStage(executionId, stageId); err != nil {
			log.Warnw("failed to persist current stage", "executionId", executionId, "stageId", stageId, "error", err)
		}
	}
	return pl
}

// registryCatalog adapts the service registry repository to the routing
// catalog interface.
type registryCatalog struct {
	repo repo.IServiceRegistryRepository
}

func (c *registryCatalog) GetActiveByType(_ context.Context, serviceType orchestrator.ServiceType) ([]orchestrator.ServiceDescriptor, error) {
	services, err := c.repo.GetActiveByType(string(serviceType))
	if err != nil {
		return nil, err
	}
	descriptors := make([]orchestrator.ServiceDescriptor, 0, len(services))
	for i := range services {
		d, err := services[i].ToDescriptor()
		if err != nil {
			log.Warnw("skipping malformed registry entry", "serviceId", services[i].ServiceId, "error", err)
			continue
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// RunPipeline starts one execution. By default the run happens in the
// background and the call returns immediately with the pending execution
// id. With ForceSync set it blocks until the terminal status is persisted
// and returns the per-stage outputs in-band; the returned error carries
// the failure cause.
func (pl *PipelineLogic) RunPipeline(ctx context.Context, req *model.RunPipelineReq) (*model.RunPipelineResp, error) {
	spec, cfg, err := pl.resolveSpec(req.ConfigId)
	if err != nil {
		return nil, err
	}

	inputJson, err := sonic.MarshalString(req.Input)
	if err != nil {
		return nil, fmt.Errorf("encode pipeline input: %w", err)
	}

	exec := &model.Execution{
		ExecutionId:  id.GetULID(),
		ConfigId:     cfg.ConfigId,
		PipelineName: cfg.Name,
		UserId:       req.UserId,
		Status:       string(statemachine.ExecutionPending),
		Input:        inputJson,
	}
	if err := pl.repos.Execution.CreateExecution(exec); err != nil {
		return nil, err
	}
	pl.metrics.ExecutionStarted()
	log.Infow("pipeline execution accepted",
		"executionId", exec.ExecutionId,
		"configId", cfg.ConfigId,
		"pipeline", cfg.Name,
		"forceSync", req.ForceSync)

	if req.ForceSync {
		runCtx, cancel := context.WithCancel(ctx)
		pl.storeCancel(exec.ExecutionId, cancel)
		defer pl.dropCancel(exec.ExecutionId)

		snap, runErr := pl.run(runCtx, spec, exec.ExecutionId, req.Input)
		status := string(statemachine.ExecutionCompleted)
		if runErr != nil {
			status = string(statemachine.ExecutionFailed)
		}
		resp := &model.RunPipelineResp{
			ExecutionId: exec.ExecutionId,
			Status:      status,
		}
		if snap != nil {
			resp.Result = snap.Output
		}
		return resp, runErr
	}

	runCtx, cancel := context.WithCancel(context.Background())
	pl.storeCancel(exec.ExecutionId, cancel)
	safe.Go(func() {
		defer pl.dropCancel(exec.ExecutionId)
		pl.run(runCtx, spec, exec.ExecutionId, req.Input)
	})
	return &model.RunPipelineResp{
		ExecutionId: exec.ExecutionId,
		Status:      string(statemachine.ExecutionPending),
	}, nil
}

// run drives one execution through running to a terminal status. It never
// leaves the record in a non-terminal state. The returned snapshot reflects
// whatever stages completed, even on failure.
func (pl *PipelineLogic) run(ctx context.Context, spec *orchestrator.PipelineSpec, executionId string, input any) (*orchestrator.RunSnapshot, error) {
	if err := pl.repos.Execution.MarkRunning(executionId); err != nil {
		log.Errorw("failed to mark execution running", "executionId", executionId, "error", err)
		pl.finishFailed(executionId, err.Error(), nil)
		return nil, err
	}

	snap, err := pl.executor.Execute(ctx, spec, executionId, input)
	if err != nil {
		pl.finishFailed(executionId, err.Error(), snap)
		return snap, err
	}

	if err := pl.repos.Execution.Complete(executionId, snap); err != nil {
		log.Errorw("failed to persist completed execution", "executionId", executionId, "error", err)
		return snap, err
	}
	pl.metrics.ExecutionFinished(string(statemachine.ExecutionCompleted))
	return snap, nil
}

func (pl *PipelineLogic) finishFailed(executionId, errMsg string, snap *orchestrator.RunSnapshot) {
	if err := pl.repos.Execution.Fail(executionId, errMsg, snap); err != nil {
		log.Errorw("failed to persist failed execution", "executionId", executionId, "error", err)
		return
	}
	pl.metrics.ExecutionFinished(string(statemachine.ExecutionFailed))
}

// GetPipelineExecutionStatus returns the stored state of one execution.
func (pl *PipelineLogic) GetPipelineExecutionStatus(executionId string) (*model.ExecutionDetail, error) {
	exec, err := pl.repos.Execution.GetByExecutionId(executionId)
	if err != nil {
		return nil, err
	}
	return exec.Detail()
}

func (pl *PipelineLogic) ListExecutions(configId string, pageNum, pageSize int) ([]model.Execution, int64, error) {
	return pl.repos.Execution.ListExecutions(configId, pageNum, pageSize)
}

// ErrExecutionNotCancellable is returned when the target execution is not
// in a cancellable state or is not owned by this process.
var ErrExecutionNotCancellable = errors.New("execution is not running")

// CancelExecution cancels a running in-process execution. The run goroutine
// observes the cancellation and persists the failed terminal status itself.
func (pl *PipelineLogic) CancelExecution(executionId string) error {
	exec, err := pl.repos.Execution.GetByExecutionId(executionId)
	if err != nil {
		return err
	}
	if statemachine.ExecutionStatus(exec.Status).IsTerminal() {
		return ErrExecutionNotCancellable
	}

	pl.mu.Lock()
	cancel, ok := pl.cancels[executionId]
	pl.mu.Unlock()
	if !ok {
		return ErrExecutionNotCancellable
	}
	cancel()
	log.Infow("execution cancellation requested", "executionId", executionId)
	return nil
}

func (pl *PipelineLogic) storeCancel(executionId string, cancel context.CancelFunc) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.cancels[executionId] = cancel
}

func (pl *PipelineLogic) dropCancel(executionId string) {
	pl.mu.Lock()
	cancel, ok := pl.cancels[executionId]
	delete(pl.cancels, executionId)
	pl.mu.Unlock()
	if ok {
		cancel()
	}
}

// resolveSpec loads the requested configuration, or the default when no id
// is given, and decodes it into an executable spec.
func (pl *PipelineLogic) resolveSpec(configId string) (*orchestrator.PipelineSpec, *model.PipelineConfig, error) {
	var (
		cfg *model.PipelineConfig
		err error
	)
	if configId != "" {
		cfg, err = pl.repos.PipelineConfig.GetByConfigId(configId)
	} else {
		cfg, err = pl.repos.PipelineConfig.GetDefault()
	}
	if err != nil {
		return nil, nil, err
	}
	if cfg.IsActive != 1 {
		return nil, nil, fmt.Errorf("%w: configuration %s is disabled", orchestrator.ErrConfigurationNotFound, cfg.ConfigId)
	}

	spec, err := cfg.ToSpec()
	if err != nil {
		return nil, nil, fmt.Errorf("decode configuration %s: %w", cfg.ConfigId, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration %s is invalid: %w", cfg.ConfigId, err)
	}
	return spec, cfg, nil
}
