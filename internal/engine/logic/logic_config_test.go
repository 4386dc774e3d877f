package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/engine/repo/memory"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
)

func newConfigLogic() *ConfigLogic {
	return NewConfigLogic(memory.NewPipelineConfigRepo())
}

func minimalStages() []orchestrator.Stage {
	return []orchestrator.Stage{
		{ID: "refine_thought", ServiceType: orchestrator.ServiceTypeTextGeneration, Required: true},
	}
}

func TestCreateConfigValidatesStages(t *testing.T) {
	cl := newConfigLogic()

	_, err := cl.CreateConfig(&model.CreatePipelineConfigReq{Name: "empty"})
	assert.ErrorContains(t, err, "no stages")

	_, err = cl.CreateConfig(&model.CreatePipelineConfigReq{
		Name: "bad-ref",
		Stages: []orchestrator.Stage{
			{ID: "a", ServiceType: orchestrator.ServiceTypeTextGeneration,
				Input: &orchestrator.StageInput{From: "b"}},
			{ID: "b", ServiceType: orchestrator.ServiceTypeImageGeneration},
		},
	})
	assert.ErrorContains(t, err, "unknown or later stage")
}

func TestCreateConfigDefaultOwnership(t *testing.T) {
	cl := newConfigLogic()
	detail, err := cl.CreateConfig(&model.CreatePipelineConfigReq{
		Name:      "first",
		IsDefault: true,
		Stages:    minimalStages(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.SystemUser, detail.OwnerId)
	assert.NotEmpty(t, detail.ConfigId)

	def, err := cl.GetDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, detail.ConfigId, def.ConfigId)
}

func TestSetDefaultConfigMovesDefault(t *testing.T) {
	cl := newConfigLogic()
	first, err := cl.CreateConfig(&model.CreatePipelineConfigReq{
		Name: "first", IsDefault: true, Stages: minimalStages(),
	})
	require.NoError(t, err)
	second, err := cl.CreateConfig(&model.CreatePipelineConfigReq{
		Name: "second", Stages: minimalStages(),
	})
	require.NoError(t, err)

	require.NoError(t, cl.SetDefaultConfig(second.ConfigId))

	def, err := cl.GetDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, second.ConfigId, def.ConfigId)

	old, err := cl.GetConfig(first.ConfigId)
	require.NoError(t, err)
	assert.Equal(t, 0, old.IsDefault)
}

func TestUpdateConfigRevalidatesStructure(t *testing.T) {
	cl := newConfigLogic()
	created, err := cl.CreateConfig(&model.CreatePipelineConfigReq{
		Name: "cfg", Stages: minimalStages(),
	})
	require.NoError(t, err)

	badStages := []orchestrator.Stage{
		{ID: "x", ServiceType: "not-a-type"},
	}
	err = cl.UpdateConfig(created.ConfigId, &model.UpdatePipelineConfigReq{Stages: &badStages})
	assert.ErrorContains(t, err, "unknown service type")

	// The stored configuration is untouched after a rejected update.
	detail, err := cl.GetConfig(created.ConfigId)
	require.NoError(t, err)
	require.Len(t, detail.Stages, 1)
	assert.Equal(t, "refine_thought", detail.Stages[0].ID)
}

func TestUpdateConfigAppliesPartialFields(t *testing.T) {
	cl := newConfigLogic()
	created, err := cl.CreateConfig(&model.CreatePipelineConfigReq{
		Name: "cfg", Stages: minimalStages(),
	})
	require.NoError(t, err)

	name := "renamed"
	inactive := false
	require.NoError(t, cl.UpdateConfig(created.ConfigId, &model.UpdatePipelineConfigReq{
		Name:     &name,
		IsActive: &inactive,
	}))

	detail, err := cl.GetConfig(created.ConfigId)
	require.NoError(t, err)
	assert.Equal(t, "renamed", detail.Name)
	assert.Equal(t, 0, detail.IsActive)
}

func TestDeleteConfig(t *testing.T) {
	cl := newConfigLogic()
	created, err := cl.CreateConfig(&model.CreatePipelineConfigReq{
		Name: "cfg", Stages: minimalStages(),
	})
	require.NoError(t, err)

	require.NoError(t, cl.DeleteConfig(created.ConfigId))
	_, err = cl.GetConfig(created.ConfigId)
	assert.ErrorIs(t, err, orchestrator.ErrConfigurationNotFound)
}
