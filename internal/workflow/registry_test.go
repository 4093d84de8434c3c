package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryDefaults(t *testing.T) {
	registry := NewRegistry()

	vocab, err := registry.Get(ContentTypeVocabulary)
	assert.NoError(t, err)
	assert.Len(t, vocab.Steps, 2)
	assert.Equal(t, RoleContentReviewer, vocab.Steps[0].RequiredRole)
	if assert.NotNil(t, vocab.Steps[0].AutoApproveScore) {
		assert.Equal(t, 70.0, *vocab.Steps[0].AutoApproveScore)
	}
	assert.Nil(t, vocab.Steps[1].AutoApproveScore)
	assert.Equal(t, RoleSeniorReviewer, vocab.Escalation.RequiredRole)
	assert.Equal(t, 12*time.Hour, vocab.EstimatedTotal())

	story, err := registry.Get(ContentTypeStory)
	assert.NoError(t, err)
	assert.Len(t, story.Steps, 3)
	if assert.NotNil(t, story.Steps[0].AutoApproveScore) {
		assert.Equal(t, 85.0, *story.Steps[0].AutoApproveScore)
	}
	assert.Equal(t, RoleEditorialReviewer, story.Steps[2].RequiredRole)

	test, err := registry.Get(ContentTypeTest)
	assert.NoError(t, err)
	assert.Len(t, test.Steps, 2)
	assert.Equal(t, RoleAssessmentReviewer, test.Steps[1].RequiredRole)
}

func TestRegistryUnknownType(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Get(ContentType("PODCAST"))
	assert.True(t, IsCode(err, CodeUnknownWorkflowType))
}

func TestDefinitionStepAccess(t *testing.T) {
	registry := NewRegistry()
	def, _ := registry.Get(ContentTypeVocabulary)

	assert.Equal(t, "vocab_content_review", def.StepAt(0).ID)
	assert.Nil(t, def.StepAt(-1))
	assert.Nil(t, def.StepAt(2))

	assert.True(t, def.HasNext(0))
	assert.False(t, def.HasNext(1))
}
