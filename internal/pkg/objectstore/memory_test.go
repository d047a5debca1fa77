package objectstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	n, err := m.Upload(ctx, "transcripts/1/a.mp4", "video/mp4", strings.NewReader("data"))
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	obj, ok := m.Get("transcripts/1/a.mp4")
	require.True(t, ok)
	assert.Equal(t, "video/mp4", obj.ContentType)

	u, err := m.SignedURL(ctx, "transcripts/1/a.mp4", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, u, "ttl=3600")

	require.NoError(t, m.Delete(ctx, "transcripts/1/a.mp4"))
	require.NoError(t, m.Delete(ctx, "transcripts/1/a.mp4"))
	_, err = m.SignedURL(ctx, "transcripts/1/a.mp4", time.Hour)
	assert.Error(t, err)
}
