package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoLifecycle(t *testing.T) {
	f := newFixture(t)
	s, err := NewServiceVideo(f.container)
	require.NoError(t, err)

	_, err = s.VideoURL(f.ctx, f.annotator, f.transcript.ID)
	assert.True(t, isKind(err, errorx.NotExist))

	transcript, err := s.UploadVideo(f.ctx, f.admin, f.transcript.ID, "Lesson.MP4", "video/mp4", strings.NewReader("first"))
	require.NoError(t, err)
	require.NotNil(t, transcript.VideoObject)
	first := *transcript.VideoObject
	assert.True(t, strings.HasPrefix(first, "transcripts/"))
	assert.True(t, strings.HasSuffix(first, ".mp4"))
	assert.True(t, transcript.HasVideo)

	transcript, err = s.UploadVideo(f.ctx, f.admin, f.transcript.ID, "lesson.mov", "video/quicktime; charset=binary", strings.NewReader("second"))
	require.NoError(t, err)
	second := *transcript.VideoObject
	assert.Equal(t, "video/quicktime", *transcript.VideoContentType)
	_, ok := f.store.Get(first)
	assert.False(t, ok, "previous object is removed")
	assert.Equal(t, 1, f.store.Len())

	url, err := s.VideoURL(f.ctx, f.annotator, f.transcript.ID)
	require.NoError(t, err)
	assert.Contains(t, url.URL, "ttl=3600")

	_, err = s.VideoURL(f.ctx, f.outsider, f.transcript.ID)
	assert.True(t, isKind(err, errorx.NotExist))

	require.NoError(t, s.DeleteVideo(f.ctx, f.admin, f.transcript.ID))
	_, ok = f.store.Get(second)
	assert.False(t, ok)
	assert.True(t, isKind(s.DeleteVideo(f.ctx, f.admin, f.transcript.ID), errorx.NotExist))
}

func TestUploadVideoRejects(t *testing.T) {
	f := newFixture(t)
	s, err := NewServiceVideo(f.container)
	require.NoError(t, err)

	_, err = s.UploadVideo(f.ctx, f.admin, f.transcript.ID, "notes.pdf", "application/pdf", strings.NewReader("x"))
	assert.True(t, isKind(err, errorx.Invalid))

	_, err = s.UploadVideo(f.ctx, f.annotator, f.transcript.ID, "a.mp4", "video/mp4", strings.NewReader("x"))
	assert.True(t, isKind(err, errorx.Authz))
	assert.Equal(t, 0, f.store.Len())
}

func TestUploadVideoCleansUpOnFailure(t *testing.T) {
	f := newFixture(t)
	s, err := NewServiceVideo(f.container)
	require.NoError(t, err)

	f.repo.Fail("UpdateTranscriptVideo", errors.New("boom"))
	_, err = s.UploadVideo(f.ctx, f.admin, f.transcript.ID, "a.mp4", "video/mp4", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, 0, f.store.Len())
}
