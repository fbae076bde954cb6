package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unit-mercury/mercury-api/models"
)

func TestFile_Editable(t *testing.T) {
	for _, status := range []int{0, models.StatusSubmitted, models.StatusRecommended, models.StatusResubmitRequest} {
		assert.True(t, models.File{Status: status}.Editable(), "status %d", status)
	}
	for _, status := range []int{models.StatusApproved, models.StatusRejected} {
		assert.False(t, models.File{Status: status}.Editable(), "status %d", status)
	}
}

func TestValidDecision(t *testing.T) {
	assert.False(t, models.ValidDecision(models.StatusSubmitted))
	assert.False(t, models.ValidDecision(models.StatusRecommended))
	assert.True(t, models.ValidDecision(models.StatusResubmitRequest))
	assert.True(t, models.ValidDecision(models.StatusApproved))
	assert.True(t, models.ValidDecision(models.StatusRejected))
	assert.False(t, models.ValidDecision(6))
}

func TestValidFiletype(t *testing.T) {
	assert.True(t, models.ValidFiletype(models.FiletypeRequestForm))
	assert.True(t, models.ValidFiletype(models.FiletypeStandardForm))
	assert.False(t, models.ValidFiletype("memo"))
}
