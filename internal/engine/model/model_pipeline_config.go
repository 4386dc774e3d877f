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
	"github.com/bytedance/sonic"

	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
)

// SystemUser owns the built-in default configurations.
const SystemUser = "system"

// PipelineConfig pipeline orchestration configuration table
type PipelineConfig struct {
	BaseModel
	ConfigId       string `gorm:"column:config_id;uniqueIndex" json:"configId"`
	Name           string `gorm:"column:name" json:"name"`
	Description    string `gorm:"column:description" json:"description"`
	OwnerId        string `gorm:"column:owner_id" json:"ownerId"`
	IsDefault      int    `gorm:"column:is_default" json:"isDefault"` // 0: no, 1: yes
	IsActive       int    `gorm:"column:is_active" json:"isActive"`   // 0: disabled, 1: enabled
	Stages         string `gorm:"column:stages;type:json" json:"-"`
	RoutingRules   string `gorm:"column:routing_rules;type:json" json:"-"`
	FallbackConfig string `gorm:"column:fallback_config;type:json" json:"-"`
}

func (PipelineConfig) TableName() string {
	return "t_pipeline_config"
}

// ToSpec decodes the stored JSON columns into an executable pipeline spec.
func (p *PipelineConfig) ToSpec() (*orchestrator.PipelineSpec, error) {
	spec := &orchestrator.PipelineSpec{
		ID:   p.ConfigId,
		Name: p.Name,
	}
	if p.Stages != "" {
		if err := sonic.UnmarshalString(p.Stages, &spec.Stages); err != nil {
			return nil, err
		}
	}
	if p.RoutingRules != "" {
		if err := sonic.UnmarshalString(p.RoutingRules, &spec.RoutingRules); err != nil {
			return nil, err
		}
	}
	if p.FallbackConfig != "" {
		if err := sonic.UnmarshalString(p.FallbackConfig, &spec.FallbackConfig); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// ApplySpec encodes the spec parts into the JSON columns.
func (p *PipelineConfig) ApplySpec(stages []orchestrator.Stage, rules map[orchestrator.ServiceType]orchestrator.RoutingRule, fallback orchestrator.FallbackConfig) error {
	stagesJSON, err := sonic.MarshalString(stages)
	if err != nil {
		return err
	}
	rulesJSON, err := sonic.MarshalString(rules)
	if err != nil {
		return err
	}
	fallbackJSON, err := sonic.MarshalString(fallback)
	if err != nil {
		return err
	}
	p.Stages = stagesJSON
	p.RoutingRules = rulesJSON
	p.FallbackConfig = fallbackJSON
	return nil
}

// CreatePipelineConfigReq request for creating a pipeline configuration
type CreatePipelineConfigReq struct {
	Name           string                                                    `json:"name"`
	Description    string                                                    `json:"description"`
	OwnerId        string                                                    `json:"ownerId"`
	IsDefault      bool                                                      `json:"isDefault"`
	Stages         []orchestrator.Stage                                      `json:"stages"`
	RoutingRules   map[orchestrator.ServiceType]orchestrator.RoutingRule     `json:"routingRules"`
	FallbackConfig orchestrator.FallbackConfig                               `json:"fallbackConfig"`
}

// UpdatePipelineConfigReq request for updating a pipeline configuration
// (ConfigId is not allowed to be modified)
type UpdatePipelineConfigReq struct {
	Name           *string                                                `json:"name,omitempty"`
	Description    *string                                                `json:"description,omitempty"`
	IsActive       *bool                                                  `json:"isActive,omitempty"`
	Stages         *[]orchestrator.Stage                                  `json:"stages,omitempty"`
	RoutingRules   *map[orchestrator.ServiceType]orchestrator.RoutingRule `json:"routingRules,omitempty"`
	FallbackConfig *orchestrator.FallbackConfig                           `json:"fallbackConfig,omitempty"`
}

// PipelineConfigDetail response for configuration detail
type PipelineConfigDetail struct {
	PipelineConfig
	Stages         []orchestrator.Stage                                  `json:"stages"`
	RoutingRules   map[orchestrator.ServiceType]orchestrator.RoutingRule `json:"routingRules,omitempty"`
	FallbackConfig orchestrator.FallbackConfig                           `json:"fallbackConfig"`
}

// Detail expands the JSON columns for API responses.
func (p *PipelineConfig) Detail() (*PipelineConfigDetail, error) {
	spec, err := p.ToSpec()
	if err != nil {
		return nil, err
	}
	return &PipelineConfigDetail{
		PipelineConfig: *p,
		Stages:         spec.Stages,
		RoutingRules:   spec.RoutingRules,
		FallbackConfig: spec.FallbackConfig,
	}, nil
}
