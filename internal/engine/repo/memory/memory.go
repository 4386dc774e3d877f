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

// Package memory provides in-memory repository implementations. They back
// the engine when it runs without a database and double as test fixtures.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/engine/repo"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/statemachine"
)

// NewRepositories returns a fully in-memory repository bundle.
func NewRepositories() *repo.Repositories {
	return &repo.Repositories{
		PipelineConfig:  NewPipelineConfigRepo(),
		ServiceRegistry: NewServiceRegistryRepo(),
		Execution:       NewExecutionRepo(),
	}
}

type PipelineConfigRepo struct {
	mu      sync.RWMutex
	configs map[string]*model.PipelineConfig
	seq     uint64
}

func NewPipelineConfigRepo() *PipelineConfigRepo {
	return &PipelineConfigRepo{configs: make(map[string]*model.PipelineConfig)}
}

func (pr *PipelineConfigRepo) CreateConfig(cfg *model.PipelineConfig) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if _, exists := pr.configs[cfg.ConfigId]; exists {
		return fmt.Errorf("config %s already exists", cfg.ConfigId)
	}
	pr.seq++
	cfg.ID = pr.seq
	cfg.CreatedAt = time.Now()
	cfg.UpdatedAt = cfg.CreatedAt
	if cfg.IsDefault == 1 {
		for _, other := range pr.configs {
			other.IsDefault = 0
		}
	}
	clone := *cfg
	pr.configs[cfg.ConfigId] = &clone
	return nil
}

func (pr *PipelineConfigRepo) GetByConfigId(configId string) (*model.PipelineConfig, error) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	cfg, ok := pr.configs[configId]
	if !ok {
		return nil, orchestrator.ErrConfigurationNotFound
	}
	clone := *cfg
	return &clone, nil
}

func (pr *PipelineConfigRepo) GetDefault() (*model.PipelineConfig, error) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	for _, cfg := range pr.configs {
		if cfg.IsDefault == 1 && cfg.IsActive == 1 {
			clone := *cfg
			return &clone, nil
		}
	}
	return nil, orchestrator.ErrConfigurationNotFound
}

func (pr *PipelineConfigRepo) ListConfigs(pageNum, pageSize int) ([]model.PipelineConfig, int64, error) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	all := make([]model.PipelineConfig, 0, len(pr.configs))
	for _, cfg := range pr.configs {
		all = append(all, *cfg)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, pageNum, pageSize), int64(len(all)), nil
}

func (pr *PipelineConfigRepo) UpdateByConfigId(configId string, updates map[string]any) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	cfg, ok := pr.configs[configId]
	if !ok {
		return orchestrator.ErrConfigurationNotFound
	}
	applyConfigUpdates(cfg, updates)
	cfg.UpdatedAt = time.Now()
	return nil
}

func (pr *PipelineConfigRepo) DeleteConfig(configId string) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if _, ok := pr.configs[configId]; !ok {
		return orchestrator.ErrConfigurationNotFound
	}
	delete(pr.configs, configId)
	return nil
}

func (pr *PipelineConfigRepo) SetDefault(configId string) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	target, ok := pr.configs[configId]
	if !ok {
		return orchestrator.ErrConfigurationNotFound
	}
	for _, cfg := range pr.configs {
		cfg.IsDefault = 0
	}
	target.IsDefault = 1
	target.UpdatedAt = time.Now()
	return nil
}

type ServiceRegistryRepo struct {
	mu       sync.RWMutex
	services map[string]*model.ServiceRegistry
	seq      uint64
}

func NewServiceRegistryRepo() *ServiceRegistryRepo {
	return &ServiceRegistryRepo{services: make(map[string]*model.ServiceRegistry)}
}

func (sr *ServiceRegistryRepo) RegisterService(svc *model.ServiceRegistry) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if _, exists := sr.services[svc.ServiceId]; exists {
		return fmt.Errorf("service %s already exists", svc.ServiceId)
	}
	sr.seq++
	svc.ID = sr.seq
	svc.CreatedAt = time.Now()
	svc.UpdatedAt = svc.CreatedAt
	clone := *svc
	sr.services[svc.ServiceId] = &clone
	return nil
}

func (sr *ServiceRegistryRepo) GetByServiceId(serviceId string) (*model.ServiceRegistry, error) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	svc, ok := sr.services[serviceId]
	if !ok {
		return nil, fmt.Errorf("service %s not found", serviceId)
	}
	clone := *svc
	return &clone, nil
}

func (sr *ServiceRegistryRepo) GetActiveByType(serviceType string) ([]model.ServiceRegistry, error) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	var out []model.ServiceRegistry
	for _, svc := range sr.services {
		if svc.ServiceType == serviceType && svc.IsActive == 1 {
			out = append(out, *svc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (sr *ServiceRegistryRepo) ListServices(pageNum, pageSize int) ([]model.ServiceRegistry, int64, error) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	all := make([]model.ServiceRegistry, 0, len(sr.services))
	for _, svc := range sr.services {
		all = append(all, *svc)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ServiceType != all[j].ServiceType {
			return all[i].ServiceType < all[j].ServiceType
		}
		return all[i].Priority > all[j].Priority
	})
	return paginate(all, pageNum, pageSize), int64(len(all)), nil
}

func (sr *ServiceRegistryRepo) UpdateByServiceId(serviceId string, updates map[string]any) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	svc, ok := sr.services[serviceId]
	if !ok {
		return fmt.Errorf("service %s not found", serviceId)
	}
	applyServiceUpdates(svc, updates)
	svc.UpdatedAt = time.Now()
	return nil
}

func (sr *ServiceRegistryRepo) UpdateHealth(serviceId string, healthStatus string, metricsJson string) error {
	if !orchestrator.HealthStatus(healthStatus).Valid() {
		return fmt.Errorf("unknown health status: %s", healthStatus)
	}
	now := time.Now()
	updates := map[string]any{
		"health_status":     healthStatus,
		"last_health_check": &now,
	}
	if metricsJson != "" {
		updates["performance_metrics"] = metricsJson
	}
	return sr.UpdateByServiceId(serviceId, updates)
}

type ExecutionRepo struct {
	mu         sync.RWMutex
	executions map[string]*model.Execution
	seq        uint64
}

func NewExecutionRepo() *ExecutionRepo {
	return &ExecutionRepo{executions: make(map[string]*model.Execution)}
}

func (er *ExecutionRepo) CreateExecution(exec *model.Execution) error {
	er.mu.Lock()
	defer er.mu.Unlock()
	if exec.Status == "" {
		exec.Status = string(statemachine.ExecutionPending)
	}
	er.seq++
	exec.ID = er.seq
	exec.CreatedAt = time.Now()
	exec.UpdatedAt = exec.CreatedAt
	clone := *exec
	er.executions[exec.ExecutionId] = &clone
	return nil
}

func (er *ExecutionRepo) GetByExecutionId(executionId string) (*model.Execution, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()
	exec, ok := er.executions[executionId]
	if !ok {
		return nil, orchestrator.ErrExecutionNotFound
	}
	clone := *exec
	return &clone, nil
}

func (er *ExecutionRepo) ListExecutions(configId string, pageNum, pageSize int) ([]model.Execution, int64, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()
	var all []model.Execution
	for _, exec := range er.executions {
		if configId == "" || exec.ConfigId == configId {
			all = append(all, *exec)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, pageNum, pageSize), int64(len(all)), nil
}

func (er *ExecutionRepo) MarkRunning(executionId string) error {
	now := time.Now()
	return er.transition(executionId, statemachine.ExecutionRunning, func(exec *model.Execution) {
		exec.StartTime = &now
	})
}

func (er *ExecutionRepo) SetCurrentStage(executionId, stageId string) error {
	er.mu.Lock()
	defer er.mu.Unlock()
	exec, ok := er.executions[executionId]
	if !ok {
		return orchestrator.ErrExecutionNotFound
	}
	exec.CurrentStage = stageId
	return nil
}

func (er *ExecutionRepo) Complete(executionId string, snap *orchestrator.RunSnapshot) error {
	return er.transition(executionId, statemachine.ExecutionCompleted, func(exec *model.Execution) {
		_ = exec.ApplySnapshot(snap)
		exec.CurrentStage = ""
	})
}

func (er *ExecutionRepo) Fail(executionId string, errMsg string, snap *orchestrator.RunSnapshot) error {
	return er.transition(executionId, statemachine.ExecutionFailed, func(exec *model.Execution) {
		exec.ErrorMsg = errMsg
		if snap != nil {
			_ = exec.ApplySnapshot(snap)
		}
	})
}

func (er *ExecutionRepo) transition(executionId string, target statemachine.ExecutionStatus, apply func(*model.Execution)) error {
	er.mu.Lock()
	defer er.mu.Unlock()
	exec, ok := er.executions[executionId]
	if !ok {
		return orchestrator.ErrExecutionNotFound
	}
	if !exec.CanTransitionTo(target) {
		return fmt.Errorf("invalid execution status transition: %s -> %s (execution %s)",
			exec.Status, target, executionId)
	}
	apply(exec)
	exec.Status = string(target)
	exec.UpdatedAt = time.Now()
	return nil
}

func paginate[T any](items []T, pageNum, pageSize int) []T {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize <= 0 {
		return items
	}
	start := (pageNum - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// applyConfigUpdates maps column-style updates onto the in-memory model so
// the memory and gorm repositories accept the same update maps.
func applyConfigUpdates(cfg *model.PipelineConfig, updates map[string]any) {
	for col, val := range updates {
		switch col {
		case "name":
			cfg.Name = val.(string)
		case "description":
			cfg.Description = val.(string)
		case "is_active":
			cfg.IsActive = toInt(val)
		case "is_default":
			cfg.IsDefault = toInt(val)
		case "stages":
			cfg.Stages = val.(string)
		case "routing_rules":
			cfg.RoutingRules = val.(string)
		case "fallback_config":
			cfg.FallbackConfig = val.(string)
		}
	}
}

func applyServiceUpdates(svc *model.ServiceRegistry, updates map[string]any) {
	for col, val := range updates {
		switch col {
		case "service_name":
			svc.ServiceName = val.(string)
		case "model":
			svc.Model = val.(string)
		case "priority":
			svc.Priority = toInt(val)
		case "is_active":
			svc.IsActive = toInt(val)
		case "capabilities":
			svc.Capabilities = val.(string)
		case "health_status":
			svc.HealthStatus = val.(string)
		case "last_health_check":
			svc.LastHealthCheck = val.(*time.Time)
		case "performance_metrics":
			svc.PerformanceMetrics = val.(string)
		}
	}
}

func toInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	}
	return 0
}
