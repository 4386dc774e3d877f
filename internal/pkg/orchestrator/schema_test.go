package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSpec() *PipelineSpec {
	return &PipelineSpec{
		ID:   "cfg-1",
		Name: "thought-to-visual",
		Stages: []Stage{
			{ID: "refine_thought", ServiceType: ServiceTypeTextGeneration, Required: true},
			{ID: "generate_image", ServiceType: ServiceTypeImageGeneration, Required: true,
				Input: &StageInput{From: "refine_thought"}},
			{ID: "animate", ServiceType: ServiceTypeVideoGeneration,
				Input: &StageInput{From: "generate_image"}},
		},
	}
}

func TestPipelineSpecValidate(t *testing.T) {
	assert.NoError(t, validSpec().Validate())
}

func TestPipelineSpecValidateNoStages(t *testing.T) {
	spec := &PipelineSpec{Name: "empty"}
	assert.ErrorContains(t, spec.Validate(), "no stages")
}

func TestPipelineSpecValidateDuplicateStageID(t *testing.T) {
	spec := validSpec()
	spec.Stages[1].ID = "refine_thought"
	assert.ErrorContains(t, spec.Validate(), "duplicate stage id")
}

func TestPipelineSpecValidateUnknownServiceType(t *testing.T) {
	spec := validSpec()
	spec.Stages[0].ServiceType = "text-generation"
	assert.ErrorContains(t, spec.Validate(), "unknown service type")
}

func TestPipelineSpecValidateForwardReference(t *testing.T) {
	spec := validSpec()
	// A stage may only consume output of an earlier stage.
	spec.Stages[0].Input = &StageInput{From: "generate_image"}
	assert.ErrorContains(t, spec.Validate(), "unknown or later stage")
}

func TestPipelineSpecValidateSelectionWeights(t *testing.T) {
	spec := validSpec()
	spec.RoutingRules = map[ServiceType]RoutingRule{
		ServiceTypeTextGeneration: {
			SelectionCriteria: &SelectionCriteria{Quality: 1.5},
		},
	}
	assert.ErrorContains(t, spec.Validate(), "out of [0,1]")
}
