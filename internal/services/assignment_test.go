package services

import (
	"testing"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotate/internal/models"
)

func TestAssign(t *testing.T) {
	f := newFixture(t)
	s, err := NewServiceAssignment(f.container)
	require.NoError(t, err)

	third, _ := f.addTranscript(t, "Science lesson", 1)

	a, err := s.Assign(f.ctx, f.admin, third.ID, AssignInput{AnnotatorID: f.annotator.ID, LLMAnnotationsVisible: true})
	require.NoError(t, err)
	assert.True(t, a.LLMAnnotationsVisible)

	_, err = s.Assign(f.ctx, f.admin, third.ID, AssignInput{AnnotatorID: f.annotator.ID})
	assert.True(t, isKind(err, errorx.Invalid))
	assert.EqualError(t, err, "already assigned")

	_, err = s.Assign(f.ctx, f.admin, third.ID, AssignInput{AnnotatorID: f.admin.ID})
	assert.True(t, isKind(err, errorx.Invalid))

	_, err = s.Assign(f.ctx, f.admin, third.ID, AssignInput{AnnotatorID: 987654})
	assert.True(t, isKind(err, errorx.NotExist))

	_, err = s.Assign(f.ctx, f.annotator, third.ID, AssignInput{AnnotatorID: f.annotator.ID})
	assert.True(t, isKind(err, errorx.Authz))
}

func TestUpdateAndDeleteAssignment(t *testing.T) {
	f := newFixture(t)
	s, err := NewServiceAssignment(f.container)
	require.NoError(t, err)

	a, err := s.UpdateAssignment(f.ctx, f.admin, f.assignment.ID, true)
	require.NoError(t, err)
	assert.True(t, a.LLMAnnotationsVisible)

	_, err = s.UpdateAssignment(f.ctx, f.outsider, f.assignment.ID, false)
	assert.True(t, isKind(err, errorx.NotExist))

	require.NoError(t, s.DeleteAssignment(f.ctx, f.admin, f.assignment.ID))
	assert.True(t, isKind(s.DeleteAssignment(f.ctx, f.admin, f.assignment.ID), errorx.NotExist))
}

func TestSetAnnotationCompleted(t *testing.T) {
	f := newFixture(t)
	s, err := NewServiceAssignment(f.container)
	require.NoError(t, err)

	a, err := s.SetAnnotationCompleted(f.ctx, f.annotator, f.transcript.ID, true)
	require.NoError(t, err)
	assert.True(t, a.Completed)
	assert.NotNil(t, a.CompletedAt)

	a, err = s.SetAnnotationCompleted(f.ctx, f.annotator, f.transcript.ID, false)
	require.NoError(t, err)
	assert.False(t, a.Completed)
	assert.Nil(t, a.CompletedAt)

	stored, err := f.repo.GetAssignmentByID(f.ctx, f.assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnnotationAssignment{
		ID:           f.assignment.ID,
		TranscriptID: f.transcript.ID,
		AnnotatorID:  f.annotator.ID,
		CreatedAt:    stored.CreatedAt,
	}, *stored)
}
