package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotate/internal/models"
)

func transcriptService(t *testing.T, f *fixture) *ServiceTranscript {
	t.Helper()
	s, err := NewServiceTranscript(f.container)
	require.NoError(t, err)
	return s
}

func TestImportTranscript(t *testing.T) {
	f := newFixture(t)
	s := transcriptService(t, f)

	csv := "Line,Speaker,Utterance,Segment\n2,Student,Four,Warmup\n1,Teacher,What is two plus two?,Warmup\n3,Teacher,Good,Closing\n"
	transcript, err := s.ImportTranscript(f.ctx, f.admin, "", "math.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "math", transcript.Name)
	assert.Equal(t, 3, transcript.LineCount)

	lines, err := f.repo.GetLines(f.ctx, transcript.ID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, 1, lines[0].Line)
	assert.Equal(t, "What is two plus two?", lines[0].Utterance)
	require.NotNil(t, lines[0].SegmentID)
	require.NotNil(t, lines[2].SegmentID)
	assert.Equal(t, *lines[0].SegmentID, *lines[1].SegmentID)
	assert.NotEqual(t, *lines[0].SegmentID, *lines[2].SegmentID)
}

func TestImportTranscriptRejects(t *testing.T) {
	f := newFixture(t)
	s := transcriptService(t, f)

	_, err := s.ImportTranscript(f.ctx, f.annotator, "x", "x.csv", strings.NewReader("line,speaker,utterance\n1,a,b\n"))
	assert.True(t, isKind(err, errorx.Authz))

	_, err = s.ImportTranscript(f.ctx, f.admin, "x", "x.csv", strings.NewReader("line,utterance\n1,b\n"))
	assert.True(t, isKind(err, errorx.Invalid))
	assert.EqualError(t, err, "missing required columns: speaker")
}

func TestImportTranscriptRollsBack(t *testing.T) {
	f := newFixture(t)
	s := transcriptService(t, f)

	before, err := f.repo.ListTranscriptsByWorkspace(f.ctx, f.workspace.ID)
	require.NoError(t, err)

	f.repo.Fail("CreateLines", errors.New("boom"))
	_, err = s.ImportTranscript(f.ctx, f.admin, "x", "x.csv", strings.NewReader("line,speaker,utterance\n1,a,b\n"))
	require.Error(t, err)

	after, err := f.repo.ListTranscriptsByWorkspace(f.ctx, f.workspace.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestListTranscripts(t *testing.T) {
	f := newFixture(t)
	s := transcriptService(t, f)

	all, err := s.ListTranscripts(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.ListTranscripts(f.ctx, f.annotator)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, m := range mine {
		require.NotNil(t, m.Assignment)
		assert.Equal(t, f.annotator.ID, m.Assignment.AnnotatorID)
	}

	none, err := s.ListTranscripts(f.ctx, f.outsider)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetTranscriptLLMVisibility(t *testing.T) {
	f := newFixture(t)
	s := transcriptService(t, f)
	require.NoError(t, f.repo.CreateLLMAnnotations(f.ctx, []*models.LLMAnnotation{
		{TranscriptID: f.transcript.ID, LineID: f.lines[0].ID, Category: "praise", Content: "nice"},
	}))

	detail, err := s.GetTranscript(f.ctx, f.annotator, f.transcript.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Lines, 3)
	assert.Nil(t, detail.LLMAnnotations)

	f.assignment.LLMAnnotationsVisible = true
	require.NoError(t, f.repo.UpdateAssignment(f.ctx, f.assignment))
	detail, err = s.GetTranscript(f.ctx, f.annotator, f.transcript.ID)
	require.NoError(t, err)
	assert.Len(t, detail.LLMAnnotations, 1)

	detail, err = s.GetTranscript(f.ctx, f.admin, f.transcript.ID)
	require.NoError(t, err)
	assert.Len(t, detail.LLMAnnotations, 1)
	assert.Len(t, detail.Assignments, 1)

	_, err = s.GetTranscript(f.ctx, f.outsider, f.transcript.ID)
	assert.True(t, isKind(err, errorx.NotExist))
}

func TestImportLLMAnnotations(t *testing.T) {
	f := newFixture(t)
	s := transcriptService(t, f)

	n, err := s.ImportLLMAnnotations(f.ctx, f.transcript.ID, "llm.csv", strings.NewReader("line,category,content\n2,uptake,builds on answer\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	annotations, err := f.repo.GetLLMAnnotations(f.ctx, f.transcript.ID)
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, f.lines[1].ID, annotations[0].LineID)

	_, err = s.ImportLLMAnnotations(f.ctx, f.transcript.ID, "llm.csv", strings.NewReader("line,category,content\n9,x,y\n"))
	assert.True(t, isKind(err, errorx.Invalid))
}

func TestDeleteTranscript(t *testing.T) {
	f := newFixture(t)
	s := transcriptService(t, f)
	object := "transcripts/1/video.mp4"
	_, err := f.store.Upload(f.ctx, object, "video/mp4", strings.NewReader("v"))
	require.NoError(t, err)
	f.transcript.VideoObject = &object
	require.NoError(t, f.repo.UpdateTranscriptVideo(f.ctx, f.transcript))

	assert.True(t, isKind(s.DeleteTranscript(f.ctx, f.annotator, f.transcript.ID), errorx.Authz))
	assert.True(t, isKind(s.DeleteTranscript(f.ctx, f.outsider, f.transcript.ID), errorx.NotExist))

	require.NoError(t, s.DeleteTranscript(f.ctx, f.admin, f.transcript.ID))
	_, err = f.repo.GetTranscript(f.ctx, f.transcript.ID)
	assert.Error(t, err)
	_, ok := f.store.Get(object)
	assert.False(t, ok)

	_, err = f.repo.GetAssignment(f.ctx, f.transcript.ID, f.annotator.ID)
	assert.Error(t, err)
}
