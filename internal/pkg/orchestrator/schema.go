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
)

// ServiceType classifies backend services for routing and registry matching.
type ServiceType string

const (
	ServiceTypeTextGeneration        ServiceType = "text_generation"
	ServiceTypeImageGeneration       ServiceType = "image_generation"
	ServiceTypeVideoGeneration       ServiceType = "video_generation"
	ServiceTypeEmbeddings            ServiceType = "embeddings"
	ServiceTypeAudioGeneration       ServiceType = "audio_generation"
	ServiceTypeAudioTranscription    ServiceType = "audio_transcription"
	ServiceTypeLanguageUnderstanding ServiceType = "language_understanding"
	ServiceTypeSearch                ServiceType = "search"
)

// Valid reports whether t is a known service type.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeTextGeneration, ServiceTypeImageGeneration, ServiceTypeVideoGeneration,
		ServiceTypeEmbeddings, ServiceTypeAudioGeneration, ServiceTypeAudioTranscription,
		ServiceTypeLanguageUnderstanding, ServiceTypeSearch:
		return true
	}
	return false
}

// FallbackType selects the fallback behavior when a stage's service attempt fails.
type FallbackType string

const (
	FallbackAlternativeService FallbackType = "alternative-service"
	FallbackSimplifiedPrompt   FallbackType = "simplified-prompt"
	FallbackCache              FallbackType = "cache"
	FallbackLocalModel         FallbackType = "local-model"
	FallbackNone               FallbackType = "none"
)

// HealthStatus is the last observed health of a registered service.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Valid reports whether h is a known health status.
func (h HealthStatus) Valid() bool {
	switch h {
	case HealthUnknown, HealthHealthy, HealthDegraded, HealthUnhealthy:
		return true
	}
	return false
}

// StageInput declares where a stage's input comes from.
// When nil, the stage receives the pipeline's original input.
type StageInput struct {
	Type string `json:"type,omitempty"`
	// From references another stage id whose output feeds this stage.
	From string `json:"from,omitempty"`
	// Default is used when the referenced stage produced no output.
	Default any `json:"default,omitempty"`
}

// StageOutput is declarative only; it is not enforced at runtime.
type StageOutput struct {
	Type string `json:"type,omitempty"`
}

// RetryConfig shapes the delay between service attempts of one stage.
type RetryConfig struct {
	MaxAttempts       int     `json:"maxAttempts,omitempty"`
	InitialDelayMs    int64   `json:"initialDelayMs,omitempty"`
	BackoffMultiplier float64 `json:"backoffMultiplier,omitempty"`
	MaxDelayMs        int64   `json:"maxDelayMs,omitempty"`
}

// FallbackStrategy controls how a stage falls over between candidate services.
type FallbackStrategy struct {
	Type FallbackType `json:"type"`
	// Services lists acceptable service names for the alternative-service type.
	Services    []string `json:"services,omitempty"`
	Threshold   float64  `json:"threshold,omitempty"`
	MaxAttempts int      `json:"maxAttempts,omitempty"`
}

// Stage is one step of a pipeline. Stages are value types embedded in a
// configuration and are not persisted independently.
type Stage struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	ServiceType      ServiceType       `json:"serviceType"`
	Required         bool              `json:"required"`
	Input            *StageInput       `json:"input,omitempty"`
	Output           *StageOutput      `json:"output,omitempty"`
	FallbackStrategy *FallbackStrategy `json:"fallbackStrategy,omitempty"`
	TimeoutMs        int64             `json:"timeoutMs,omitempty"`
	RetryConfig      *RetryConfig      `json:"retryConfig,omitempty"`
}

// SelectionCriteria weighs service selection. Weights are in [0, 1].
type SelectionCriteria struct {
	Quality float64 `json:"quality"`
	Speed   float64 `json:"speed"`
	Cost    float64 `json:"cost"`
}

// RoutingRule is the per-service-type routing preference of a pipeline.
type RoutingRule struct {
	PreferredProviders []string           `json:"preferredProviders,omitempty"`
	SelectionCriteria  *SelectionCriteria `json:"selectionCriteria,omitempty"`
}

// FallbackConfig carries pipeline-wide fallback defaults.
type FallbackConfig struct {
	GlobalMaxAttempts int                        `json:"globalMaxAttempts,omitempty"`
	FallbackProviders map[ServiceType][]string   `json:"fallbackProviders,omitempty"`
}

// PipelineSpec is the validated, executable form of a pipeline configuration.
type PipelineSpec struct {
	ID             string                      `json:"id"`
	Name           string                      `json:"name"`
	Stages         []Stage                     `json:"stages"`
	RoutingRules   map[ServiceType]RoutingRule `json:"routingRules,omitempty"`
	FallbackConfig FallbackConfig              `json:"fallbackConfig"`
}

// Validate checks the structural invariants of a pipeline spec:
// at least one stage, unique stage ids, known service types,
// input.from referencing an earlier stage, selection weights in [0, 1].
func (s *PipelineSpec) Validate() error {
	if len(s.Stages) == 0 {
		return fmt.Errorf("pipeline %q has no stages", s.Name)
	}

	seen := make(map[string]struct{}, len(s.Stages))
	for i, stage := range s.Stages {
		if stage.ID == "" {
			return fmt.Errorf("stage at index %d has no id", i)
		}
		if _, dup := seen[stage.ID]; dup {
			return fmt.Errorf("duplicate stage id %q", stage.ID)
		}
		if !stage.ServiceType.Valid() {
			return fmt.Errorf("stage %q has unknown service type %q", stage.ID, stage.ServiceType)
		}
		if stage.Input != nil && stage.Input.From != "" {
			if _, ok := seen[stage.Input.From]; !ok {
				return fmt.Errorf("stage %q input references unknown or later stage %q", stage.ID, stage.Input.From)
			}
		}
		seen[stage.ID] = struct{}{}
	}

	for serviceType, rule := range s.RoutingRules {
		if !serviceType.Valid() {
			return fmt.Errorf("routing rule for unknown service type %q", serviceType)
		}
		if sc := rule.SelectionCriteria; sc != nil {
			for name, w := range map[string]float64{"quality": sc.Quality, "speed": sc.Speed, "cost": sc.Cost} {
				if w < 0 || w > 1 {
					return fmt.Errorf("selection criteria %s weight %v out of [0,1] for service type %q", name, w, serviceType)
				}
			}
		}
	}

	return nil
}

// RoutingRuleFor returns the routing rule for a service type, if declared.
func (s *PipelineSpec) RoutingRuleFor(t ServiceType) (RoutingRule, bool) {
	rule, ok := s.RoutingRules[t]
	return rule, ok
}

// PerformanceMetrics is the rolling performance record of a registered service.
type PerformanceMetrics struct {
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	SuccessRate       float64 `json:"successRate"`
	TotalCalls        int64   `json:"totalCalls"`
}

// ServiceDescriptor describes one routable backend service.
type ServiceDescriptor struct {
	ID           string       `json:"id"`
	ProviderID   string       `json:"providerId"`
	ServiceName  string       `json:"serviceName"`
	ServiceType  ServiceType  `json:"serviceType"`
	Priority     int          `json:"priority"`
	Capabilities []string     `json:"capabilities,omitempty"`
	HealthStatus HealthStatus `json:"healthStatus"`
	Model        string       `json:"model,omitempty"`
}

// Endpoint identifies the service in metrics and execution records.
func (d ServiceDescriptor) Endpoint() string {
	return d.ProviderID + "/" + d.ServiceName
}

// ServiceCatalog is the read-side registry view the stage router selects from.
type ServiceCatalog interface {
	// GetActiveByType returns all active services of the given type.
	GetActiveByType(ctx context.Context, serviceType ServiceType) ([]ServiceDescriptor, error)
}

// ServiceInvoker dispatches a stage's work to a concrete backend service.
// Provider adapters implement this; the orchestrator treats the returned
// output as an opaque payload.
type ServiceInvoker interface {
	Invoke(ctx context.Context, stage *Stage, input any, svc ServiceDescriptor) (any, error)
}

// StageMetrics captures how a single stage execution went.
type StageMetrics struct {
	DurationMs int64  `json:"durationMs"`
	Attempts   int    `json:"attempts"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
}

// StageResult is the outcome of one stage execution attempt sequence.
// Failure is always reported through Success/Err, never panics.
type StageResult struct {
	Success     bool
	Output      any
	Err         error
	ServiceUsed string
	Metrics     StageMetrics
}
