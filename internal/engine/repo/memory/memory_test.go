package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/statemachine"
)

func TestSetDefaultKeepsSingleDefault(t *testing.T) {
	pr := NewPipelineConfigRepo()
	require.NoError(t, pr.CreateConfig(&model.PipelineConfig{ConfigId: "a", IsDefault: 1, IsActive: 1}))
	require.NoError(t, pr.CreateConfig(&model.PipelineConfig{ConfigId: "b", IsActive: 1}))

	require.NoError(t, pr.SetDefault("b"))

	a, err := pr.GetByConfigId("a")
	require.NoError(t, err)
	assert.Equal(t, 0, a.IsDefault)

	def, err := pr.GetDefault()
	require.NoError(t, err)
	assert.Equal(t, "b", def.ConfigId)
}

func TestGetDefaultMissing(t *testing.T) {
	pr := NewPipelineConfigRepo()
	_, err := pr.GetDefault()
	assert.ErrorIs(t, err, orchestrator.ErrConfigurationNotFound)
}

func TestGetActiveByTypeFiltersAndOrders(t *testing.T) {
	sr := NewServiceRegistryRepo()
	require.NoError(t, sr.RegisterService(&model.ServiceRegistry{
		ServiceId: "s1", ServiceType: "text_generation", IsActive: 1, Priority: 10,
	}))
	require.NoError(t, sr.RegisterService(&model.ServiceRegistry{
		ServiceId: "s2", ServiceType: "text_generation", IsActive: 1, Priority: 90,
	}))
	require.NoError(t, sr.RegisterService(&model.ServiceRegistry{
		ServiceId: "s3", ServiceType: "text_generation", IsActive: 0, Priority: 100,
	}))
	require.NoError(t, sr.RegisterService(&model.ServiceRegistry{
		ServiceId: "s4", ServiceType: "image_generation", IsActive: 1, Priority: 50,
	}))

	services, err := sr.GetActiveByType("text_generation")
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "s2", services[0].ServiceId)
	assert.Equal(t, "s1", services[1].ServiceId)
}

func TestExecutionLifecycleGuards(t *testing.T) {
	er := NewExecutionRepo()
	require.NoError(t, er.CreateExecution(&model.Execution{ExecutionId: "e1"}))

	// Completing a pending execution skips the running step.
	err := er.Complete("e1", &orchestrator.RunSnapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid execution status transition")

	require.NoError(t, er.MarkRunning("e1"))
	exec, err := er.GetByExecutionId("e1")
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.ExecutionRunning), exec.Status)
	assert.NotNil(t, exec.StartTime)

	require.NoError(t, er.Complete("e1", &orchestrator.RunSnapshot{
		Output: map[string]any{"stage": "out"},
	}))

	// Terminal states are final.
	assert.Error(t, er.Fail("e1", "late failure", nil))
	assert.Error(t, er.MarkRunning("e1"))
}

func TestFailFromPending(t *testing.T) {
	er := NewExecutionRepo()
	require.NoError(t, er.CreateExecution(&model.Execution{ExecutionId: "e1"}))
	require.NoError(t, er.Fail("e1", "could not start", nil))

	exec, err := er.GetByExecutionId("e1")
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.ExecutionFailed), exec.Status)
	assert.Equal(t, "could not start", exec.ErrorMsg)
}

func TestGetUnknownExecution(t *testing.T) {
	er := NewExecutionRepo()
	_, err := er.GetByExecutionId("missing")
	assert.ErrorIs(t, err, orchestrator.ErrExecutionNotFound)
}
