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
	"github.com/bytedance/sonic"

	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/engine/repo"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/id"
	"github.com/visionflow/visionflow/pkg/log"
)

// ConfigLogic manages pipeline configurations. Structural validation runs
// at save time so execution never sees a malformed pipeline.
type ConfigLogic struct {
	configRepo repo.IPipelineConfigRepository
}

func NewConfigLogic(configRepo repo.IPipelineConfigRepository) *ConfigLogic {
	return &ConfigLogic{configRepo: configRepo}
}

// CreateConfig validates and stores a new pipeline configuration.
func (cl *ConfigLogic) CreateConfig(req *model.CreatePipelineConfigReq) (*model.PipelineConfigDetail, error) {
	spec := &orchestrator.PipelineSpec{
		Name:           req.Name,
		Stages:         req.Stages,
		RoutingRules:   req.RoutingRules,
		FallbackConfig: req.FallbackConfig,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	owner := req.OwnerId
	if owner == "" {
		owner = model.SystemUser
	}
	cfg := &model.PipelineConfig{
		ConfigId:    id.GetUUID(),
		Name:        req.Name,
		Description: req.Description,
		OwnerId:     owner,
		IsActive:    1,
	}
	if req.IsDefault {
		cfg.IsDefault = 1
	}
	if err := cfg.ApplySpec(req.Stages, req.RoutingRules, req.FallbackConfig); err != nil {
		return nil, err
	}

	if err := cl.configRepo.CreateConfig(cfg); err != nil {
		log.Errorf("create pipeline config err: %v", err)
		return nil, err
	}
	if req.IsDefault {
		// CreateConfig only marks the row; demote any previous default.
		if err := cl.configRepo.SetDefault(cfg.ConfigId); err != nil {
			return nil, err
		}
	}
	return cfg.Detail()
}

func (cl *ConfigLogic) GetConfig(configId string) (*model.PipelineConfigDetail, error) {
	cfg, err := cl.configRepo.GetByConfigId(configId)
	if err != nil {
		return nil, err
	}
	return cfg.Detail()
}

func (cl *ConfigLogic) GetDefaultConfig() (*model.PipelineConfigDetail, error) {
	cfg, err := cl.configRepo.GetDefault()
	if err != nil {
		return nil, err
	}
	return cfg.Detail()
}

func (cl *ConfigLogic) ListConfigs(pageNum, pageSize int) ([]model.PipelineConfig, int64, error) {
	configs, count, err := cl.configRepo.ListConfigs(pageNum, pageSize)
	if err != nil {
		log.Errorf("list pipeline configs err: %v", err)
		return nil, 0, err
	}
	return configs, count, nil
}

// UpdateConfig applies a partial update. Any structural change is
// re-validated against the merged result before it is persisted.
func (cl *ConfigLogic) UpdateConfig(configId string, req *model.UpdatePipelineConfigReq) error {
	cfg, err := cl.configRepo.GetByConfigId(configId)
	if err != nil {
		return err
	}
	spec, err := cfg.ToSpec()
	if err != nil {
		return err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
		spec.Name = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = boolToInt(*req.IsActive)
	}
	if req.Stages != nil {
		spec.Stages = *req.Stages
	}
	if req.RoutingRules != nil {
		spec.RoutingRules = *req.RoutingRules
	}
	if req.FallbackConfig != nil {
		spec.FallbackConfig = *req.FallbackConfig
	}

	if req.Stages != nil || req.RoutingRules != nil || req.FallbackConfig != nil {
		if err := spec.Validate(); err != nil {
			return err
		}
		stagesJson, err := sonic.MarshalString(spec.Stages)
		if err != nil {
			return err
		}
		rulesJson, err := sonic.MarshalString(spec.RoutingRules)
		if err != nil {
			return err
		}
		fallbackJson, err := sonic.MarshalString(spec.FallbackConfig)
		if err != nil {
			return err
		}
		updates["stages"] = stagesJson
		updates["routing_rules"] = rulesJson
		updates["fallback_config"] = fallbackJson
	}

	if len(updates) == 0 {
		return nil
	}
	return cl.configRepo.UpdateByConfigId(configId, updates)
}

func (cl *ConfigLogic) DeleteConfig(configId string) error {
	return cl.configRepo.DeleteConfig(configId)
}

// SetDefaultConfig promotes one configuration to be the default.
func (cl *ConfigLogic) SetDefaultConfig(configId string) error {
	return cl.configRepo.SetDefault(configId)
}
