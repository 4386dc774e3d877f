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
	"errors"

	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/log"
)

// InitializePipelineSystem seeds the built-in pipeline configurations on
// first start. It is idempotent: when a default configuration already
// exists nothing is written.
func (cl *ConfigLogic) InitializePipelineSystem() error {
	if _, err := cl.configRepo.GetDefault(); err == nil {
		log.Debugw("default pipeline configuration already present, skipping seed")
		return nil
	} else if !errors.Is(err, orchestrator.ErrConfigurationNotFound) {
		return err
	}

	for _, seed := range builtinConfigs() {
		if _, err := cl.CreateConfig(seed); err != nil {
			return err
		}
		log.Infow("seeded pipeline configuration", "name", seed.Name, "default", seed.IsDefault)
	}
	return nil
}

// builtinConfigs returns the system-owned pipeline configurations.
func builtinConfigs() []*model.CreatePipelineConfigReq {
	return []*model.CreatePipelineConfigReq{
		{
			Name:        "thought-to-visual",
			Description: "Refine a raw thought into a prompt, render it as an image, then animate it.",
			OwnerId:     model.SystemUser,
			IsDefault:   true,
			Stages: []orchestrator.Stage{
				{
					ID:          "refine_thought",
					Name:        "Refine thought",
					ServiceType: orchestrator.ServiceTypeTextGeneration,
					Required:    true,
					TimeoutMs:   30000,
					FallbackStrategy: &orchestrator.FallbackStrategy{
						Type:        orchestrator.FallbackAlternativeService,
						MaxAttempts: 3,
					},
					RetryConfig: &orchestrator.RetryConfig{
						MaxAttempts:       3,
						InitialDelayMs:    500,
						BackoffMultiplier: 2,
						MaxDelayMs:        5000,
					},
				},
				{
					ID:          "generate_image",
					Name:        "Generate image",
					ServiceType: orchestrator.ServiceTypeImageGeneration,
					Required:    true,
					Input:       &orchestrator.StageInput{From: "refine_thought"},
					TimeoutMs:   60000,
					FallbackStrategy: &orchestrator.FallbackStrategy{
						Type:        orchestrator.FallbackAlternativeService,
						MaxAttempts: 2,
					},
					RetryConfig: &orchestrator.RetryConfig{
						MaxAttempts:       2,
						InitialDelayMs:    1000,
						BackoffMultiplier: 2,
						MaxDelayMs:        8000,
					},
				},
				{
					ID:          "animate",
					Name:        "Animate",
					ServiceType: orchestrator.ServiceTypeVideoGeneration,
					Input:       &orchestrator.StageInput{From: "generate_image"},
					TimeoutMs:   120000,
					FallbackStrategy: &orchestrator.FallbackStrategy{
						Type: orchestrator.FallbackNone,
					},
				},
			},
			RoutingRules: map[orchestrator.ServiceType]orchestrator.RoutingRule{
				orchestrator.ServiceTypeTextGeneration: {
					SelectionCriteria: &orchestrator.SelectionCriteria{Quality: 0.6, Speed: 0.2, Cost: 0.2},
				},
				orchestrator.ServiceTypeImageGeneration: {
					SelectionCriteria: &orchestrator.SelectionCriteria{Quality: 0.7, Speed: 0.1, Cost: 0.2},
				},
				orchestrator.ServiceTypeVideoGeneration: {
					SelectionCriteria: &orchestrator.SelectionCriteria{Quality: 0.5, Speed: 0.3, Cost: 0.2},
				},
			},
			FallbackConfig: orchestrator.FallbackConfig{GlobalMaxAttempts: 3},
		},
		{
			Name:        "thought-to-image",
			Description: "Lighter variant without the animation stage.",
			OwnerId:     model.SystemUser,
			Stages: []orchestrator.Stage{
				{
					ID:          "refine_thought",
					Name:        "Refine thought",
					ServiceType: orchestrator.ServiceTypeTextGeneration,
					Required:    true,
					TimeoutMs:   30000,
					FallbackStrategy: &orchestrator.FallbackStrategy{
						Type:        orchestrator.FallbackAlternativeService,
						MaxAttempts: 2,
					},
				},
				{
					ID:          "generate_image",
					Name:        "Generate image",
					ServiceType: orchestrator.ServiceTypeImageGeneration,
					Required:    true,
					Input:       &orchestrator.StageInput{From: "refine_thought"},
					TimeoutMs:   60000,
					FallbackStrategy: &orchestrator.FallbackStrategy{
						Type:        orchestrator.FallbackAlternativeService,
						MaxAttempts: 2,
					},
				},
			},
			FallbackConfig: orchestrator.FallbackConfig{GlobalMaxAttempts: 2},
		},
	}
}
