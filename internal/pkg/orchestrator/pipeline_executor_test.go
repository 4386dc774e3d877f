package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(catalog ServiceCatalog, inv ServiceInvoker) *PipelineExecutor {
	return NewPipelineExecutor(NewStageRouter(catalog), NewStageExecutor(inv, 0, nil))
}

func fullCatalog() *fakeCatalog {
	return &fakeCatalog{services: map[ServiceType][]ServiceDescriptor{
		ServiceTypeTextGeneration: {
			{ProviderID: "openai", ServiceName: "gpt", ServiceType: ServiceTypeTextGeneration, Priority: 90, HealthStatus: HealthHealthy},
		},
		ServiceTypeImageGeneration: {
			{ProviderID: "sd", ServiceName: "sdxl", ServiceType: ServiceTypeImageGeneration, Priority: 80, HealthStatus: HealthHealthy},
		},
		ServiceTypeVideoGeneration: {
			{ProviderID: "runway", ServiceName: "gen3", ServiceType: ServiceTypeVideoGeneration, Priority: 70, HealthStatus: HealthHealthy},
		},
	}}
}

func TestPipelineExecuteAllStages(t *testing.T) {
	inv := &fakeInvoker{}
	exec := newTestExecutor(fullCatalog(), inv)

	snap, err := exec.Execute(context.Background(), validSpec(), "exec-1", "a sunset over mountains")
	require.NoError(t, err)

	// Each stage consumed the previous stage's output.
	assert.Equal(t, "openai/gpt:a sunset over mountains", snap.Output["refine_thought"])
	assert.Equal(t, "sd/sdxl:openai/gpt:a sunset over mountains", snap.Output["generate_image"])
	assert.Contains(t, snap.Output, "animate")
	assert.Empty(t, snap.Errors)
	assert.Len(t, snap.Metrics.StageResults, 3)
	assert.Equal(t, 1, snap.Metrics.ServicesUsed["openai/gpt"])
	assert.False(t, snap.Metrics.EndTime.IsZero())
}

func TestPipelineExecuteRequiredStageNoServices(t *testing.T) {
	// Registry has no text generation services at all.
	catalog := fullCatalog()
	delete(catalog.services, ServiceTypeTextGeneration)
	exec := newTestExecutor(catalog, &fakeInvoker{})

	snap, err := exec.Execute(context.Background(), validSpec(), "exec-1", "input")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequiredStageFailed)
	assert.ErrorIs(t, err, ErrNoServicesAvailable)
	assert.ErrorContains(t, err, "no services available for stage type: text_generation")

	// The snapshot still reports the failed stage.
	require.Contains(t, snap.Errors, "refine_thought")
	assert.NotContains(t, snap.Output, "generate_image")
}

func TestPipelineExecuteOptionalStageFailureContinues(t *testing.T) {
	catalog := fullCatalog()
	delete(catalog.services, ServiceTypeVideoGeneration)
	exec := newTestExecutor(catalog, &fakeInvoker{})

	// animate is optional in validSpec.
	snap, err := exec.Execute(context.Background(), validSpec(), "exec-1", "input")
	require.NoError(t, err)
	assert.Contains(t, snap.Output, "generate_image")
	assert.NotContains(t, snap.Output, "animate")
	require.Contains(t, snap.Errors, "animate")
	assert.Contains(t, snap.Errors["animate"].Message, "no services available")
}

func TestPipelineExecuteRequiredStageAllServicesFailed(t *testing.T) {
	inv := &fakeInvoker{fail: map[string]error{"sd/sdxl": errors.New("quota exceeded")}}
	exec := newTestExecutor(fullCatalog(), inv)

	snap, err := exec.Execute(context.Background(), validSpec(), "exec-1", "input")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequiredStageFailed)
	assert.ErrorIs(t, err, ErrAllServicesFailed)
	assert.ErrorContains(t, err, "quota exceeded")

	// The first stage completed before the failure.
	assert.Contains(t, snap.Output, "refine_thought")
	assert.Contains(t, snap.Errors, "generate_image")
}

func TestPipelineExecuteInputDefaultWhenUpstreamMissing(t *testing.T) {
	catalog := fullCatalog()
	delete(catalog.services, ServiceTypeImageGeneration)

	spec := validSpec()
	spec.Stages[1].Required = false
	spec.Stages[2].Input.Default = "placeholder.png"

	exec := newTestExecutor(catalog, &fakeInvoker{})
	snap, err := exec.Execute(context.Background(), spec, "exec-1", "input")
	require.NoError(t, err)
	assert.Equal(t, "runway/gen3:placeholder.png", snap.Output["animate"])
}

func TestPipelineExecuteInputUnresolved(t *testing.T) {
	catalog := fullCatalog()
	delete(catalog.services, ServiceTypeImageGeneration)

	spec := validSpec()
	spec.Stages[1].Required = false
	spec.Stages[2].Required = true // animate now requires generate_image output

	exec := newTestExecutor(catalog, &fakeInvoker{})
	snap, err := exec.Execute(context.Background(), spec, "exec-1", "input")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStageInputUnresolved)
	assert.Contains(t, snap.Errors, "animate")
}

func TestPipelineExecuteCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := newTestExecutor(fullCatalog(), &fakeInvoker{})
	snap, err := exec.Execute(ctx, validSpec(), "exec-1", "input")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, snap.Errors, "refine_thought")
	assert.Empty(t, snap.Output)
}

func TestPipelineExecuteOriginalInputForFirstStage(t *testing.T) {
	inv := &fakeInvoker{}
	exec := newTestExecutor(fullCatalog(), inv)

	spec := &PipelineSpec{
		ID:   "cfg-1",
		Name: "single",
		Stages: []Stage{
			{ID: "only", ServiceType: ServiceTypeTextGeneration, Required: true},
		},
	}
	snap, err := exec.Execute(context.Background(), spec, "exec-1", map[string]any{"thought": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt:map[thought:hi]", snap.Output["only"])
}
