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

package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"github.com/visionflow/visionflow/internal/engine/consts"
	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/cache"
	"github.com/visionflow/visionflow/pkg/database"
	"github.com/visionflow/visionflow/pkg/log"
	"github.com/visionflow/visionflow/pkg/statemachine"
)

type IExecutionRepository interface {
	CreateExecution(exec *model.Execution) error
	GetByExecutionId(executionId string) (*model.Execution, error)
	ListExecutions(configId string, pageNum, pageSize int) ([]model.Execution, int64, error)
	MarkRunning(executionId string) error
	SetCurrentStage(executionId, stageId string) error
	Complete(executionId string, snap *orchestrator.RunSnapshot) error
	Fail(executionId string, errMsg string, snap *orchestrator.RunSnapshot) error
}

type ExecutionRepo struct {
	database.IDatabase
	cache.ICache
}

func NewExecutionRepo(db database.IDatabase, cache cache.ICache) IExecutionRepository {
	return &ExecutionRepo{
		IDatabase: db,
		ICache:    cache,
	}
}

// CreateExecution stores a new execution record in pending state.
func (er *ExecutionRepo) CreateExecution(exec *model.Execution) error {
	if exec.Status == "" {
		exec.Status = string(statemachine.ExecutionPending)
	}
	return er.Database().Table(exec.TableName()).Create(exec).Error
}

// GetByExecutionId loads one execution. Terminal records are immutable, so
// they are served cache-aside; pending and running reads always hit the
// database to keep status polling fresh.
func (er *ExecutionRepo) GetByExecutionId(executionId string) (*model.Execution, error) {
	ctx := context.Background()
	cacheKey := consts.ExecutionDetailKey + executionId

	if er.ICache != nil {
		cachedData, err := er.ICache.Get(ctx, cacheKey).Result()
		if err == nil && cachedData != "" {
			var exec model.Execution
			if err := sonic.UnmarshalString(cachedData, &exec); err == nil {
				return &exec, nil
			}
			log.Warnw("failed to unmarshal execution from cache", "executionId", executionId, "error", err)
		}
	}

	var exec model.Execution
	if err := er.Database().Table(exec.TableName()).
		Where("execution_id = ?", executionId).First(&exec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orchestrator.ErrExecutionNotFound
		}
		return nil, err
	}

	if er.ICache != nil && statemachine.ExecutionStatus(exec.Status).IsTerminal() {
		execJson, err := sonic.MarshalString(&exec)
		if err == nil {
			if err := er.ICache.Set(ctx, cacheKey, execJson, 10*time.Minute).Err(); err != nil {
				log.Warnw("failed to cache execution", "executionId", executionId, "error", err)
			}
		}
	}
	return &exec, nil
}

func (er *ExecutionRepo) ListExecutions(configId string, pageNum, pageSize int) ([]model.Execution, int64, error) {
	var (
		executions []model.Execution
		count      int64
	)
	tableName := model.Execution{}.TableName()
	query := er.Database().Table(tableName)
	if configId != "" {
		query = query.Where("config_id = ?", configId)
	}
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := query.
		Order("created_at DESC").
		Offset((pageNum - 1) * pageSize).Limit(pageSize).
		Find(&executions).Error; err != nil {
		return nil, 0, err
	}
	return executions, count, nil
}

// MarkRunning transitions pending -> running and stamps the start time.
func (er *ExecutionRepo) MarkRunning(executionId string) error {
	now := time.Now()
	return er.transition(executionId, statemachine.ExecutionRunning, map[string]any{
		"start_time": &now,
	})
}

func (er *ExecutionRepo) SetCurrentStage(executionId, stageId string) error {
	return er.Database().Table(model.Execution{}.TableName()).
		Where("execution_id = ?", executionId).
		Update("current_stage", stageId).Error
}

// Complete transitions running -> completed and persists the run snapshot.
func (er *ExecutionRepo) Complete(executionId string, snap *orchestrator.RunSnapshot) error {
	updates, err := snapshotUpdates(snap)
	if err != nil {
		return err
	}
	updates["current_stage"] = ""
	return er.transition(executionId, statemachine.ExecutionCompleted, updates)
}

// Fail transitions the execution to failed from either pending or running.
// A partial snapshot, when present, is persisted alongside the error.
func (er *ExecutionRepo) Fail(executionId string, errMsg string, snap *orchestrator.RunSnapshot) error {
	updates := map[string]any{"error_msg": errMsg}
	if snap != nil {
		snapUpdates, err := snapshotUpdates(snap)
		if err != nil {
			return err
		}
		for k, v := range snapUpdates {
			updates[k] = v
		}
	}
	return er.transition(executionId, statemachine.ExecutionFailed, updates)
}

// transition applies a guarded status change. Writes that would leave a
// terminal state or skip a lifecycle step are rejected.
func (er *ExecutionRepo) transition(executionId string, target statemachine.ExecutionStatus, updates map[string]any) error {
	exec, err := er.GetByExecutionId(executionId)
	if err != nil {
		return err
	}
	if !exec.CanTransitionTo(target) {
		return fmt.Errorf("invalid execution status transition: %s -> %s (execution %s)",
			exec.Status, target, executionId)
	}

	if updates == nil {
		updates = make(map[string]any)
	}
	updates["status"] = string(target)

	// Guard at the database level too so concurrent writers cannot both win.
	result := er.Database().Table(exec.TableName()).
		Where("execution_id = ? AND status = ?", executionId, exec.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("execution %s status changed concurrently", executionId)
	}
	if target.IsTerminal() {
		log.Infow("execution finished", "executionId", executionId, "status", target)
	}
	return nil
}

func snapshotUpdates(snap *orchestrator.RunSnapshot) (map[string]any, error) {
	var exec model.Execution
	if err := exec.ApplySnapshot(snap); err != nil {
		return nil, err
	}
	updates := map[string]any{
		"output":   exec.Output,
		"metrics":  exec.Metrics,
		"duration": exec.Duration,
	}
	if exec.Errors != "" {
		updates["errors"] = exec.Errors
	}
	if exec.EndTime != nil {
		updates["end_time"] = exec.EndTime
	}
	return updates, nil
}
