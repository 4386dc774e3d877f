package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/statemachine"
)

func TestPipelineConfigSpecRoundTrip(t *testing.T) {
	stages := []orchestrator.Stage{
		{
			ID:          "refine_thought",
			ServiceType: orchestrator.ServiceTypeTextGeneration,
			Required:    true,
			TimeoutMs:   30000,
			FallbackStrategy: &orchestrator.FallbackStrategy{
				Type:        orchestrator.FallbackAlternativeService,
				MaxAttempts: 3,
			},
		},
		{
			ID:          "generate_image",
			ServiceType: orchestrator.ServiceTypeImageGeneration,
			Required:    true,
			Input:       &orchestrator.StageInput{From: "refine_thought"},
		},
	}
	rules := map[orchestrator.ServiceType]orchestrator.RoutingRule{
		orchestrator.ServiceTypeTextGeneration: {PreferredProviders: []string{"openai"}},
	}
	fallback := orchestrator.FallbackConfig{GlobalMaxAttempts: 3}

	cfg := &PipelineConfig{ConfigId: "cfg-1", Name: "test"}
	require.NoError(t, cfg.ApplySpec(stages, rules, fallback))

	spec, err := cfg.ToSpec()
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", spec.ID)
	require.Len(t, spec.Stages, 2)
	assert.Equal(t, orchestrator.ServiceTypeImageGeneration, spec.Stages[1].ServiceType)
	require.NotNil(t, spec.Stages[1].Input)
	assert.Equal(t, "refine_thought", spec.Stages[1].Input.From)
	assert.Equal(t, 3, spec.Stages[0].FallbackStrategy.MaxAttempts)
	assert.Equal(t, []string{"openai"}, spec.RoutingRules[orchestrator.ServiceTypeTextGeneration].PreferredProviders)
	assert.Equal(t, 3, spec.FallbackConfig.GlobalMaxAttempts)
	assert.NoError(t, spec.Validate())
}

func TestServiceRegistryToDescriptor(t *testing.T) {
	svc := &ServiceRegistry{
		ServiceId:    "svc-1",
		ProviderId:   "openai",
		ServiceName:  "gpt",
		ServiceType:  "text_generation",
		Model:        "gpt-4o",
		Priority:     90,
		Capabilities: `["streaming","json_mode"]`,
	}
	d, err := svc.ToDescriptor()
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt", d.Endpoint())
	assert.Equal(t, orchestrator.ServiceTypeTextGeneration, d.ServiceType)
	assert.Equal(t, orchestrator.HealthUnknown, d.HealthStatus)
	assert.Equal(t, []string{"streaming", "json_mode"}, d.Capabilities)
}

func TestExecutionApplySnapshotAndDetail(t *testing.T) {
	now := time.Now()
	snap := &orchestrator.RunSnapshot{
		Output: map[string]any{"refine_thought": "a refined prompt"},
		Errors: map[string]orchestrator.StageError{
			"animate": {Message: "no services available", Timestamp: now},
		},
		Metrics: orchestrator.RunMetrics{
			StageResults:    map[string]orchestrator.StageMetrics{"refine_thought": {Attempts: 1, DurationMs: 12}},
			ServicesUsed:    map[string]int{"openai/gpt": 1},
			StartTime:       now.Add(-time.Second),
			EndTime:         now,
			TotalDurationMs: 1000,
		},
	}

	exec := &Execution{ExecutionId: "exec-1", Status: "completed"}
	require.NoError(t, exec.ApplySnapshot(snap))
	assert.EqualValues(t, 1000, exec.Duration)
	require.NotNil(t, exec.EndTime)

	detail, err := exec.Detail()
	require.NoError(t, err)
	assert.Equal(t, "a refined prompt", detail.Output["refine_thought"])
	assert.Contains(t, detail.Errors, "animate")
	require.NotNil(t, detail.Metrics)
	assert.Equal(t, 1, detail.Metrics.StageResults["refine_thought"].Attempts)
}

func TestExecutionStatusTransitions(t *testing.T) {
	exec := &Execution{Status: string(statemachine.ExecutionPending)}
	assert.True(t, exec.CanTransitionTo(statemachine.ExecutionRunning))
	assert.False(t, exec.CanTransitionTo(statemachine.ExecutionCompleted))

	exec.Status = string(statemachine.ExecutionCompleted)
	assert.False(t, exec.CanTransitionTo(statemachine.ExecutionFailed))
	assert.False(t, exec.CanTransitionTo(statemachine.ExecutionRunning))
}
