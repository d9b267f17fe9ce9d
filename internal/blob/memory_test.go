package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"docforest/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ListPaginates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Put(ctx, fmt.Sprintf("doc/attachments/%02d", i), []byte("x"), "text/plain", nil))
	}
	require.NoError(t, s.Put(ctx, "other/attachments/00", []byte("x"), "text/plain", nil))

	first, err := s.List(ctx, "doc/attachments/", "", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc/attachments/00", "doc/attachments/01", "doc/attachments/02"}, first.Keys)
	assert.NotEmpty(t, first.Next)

	all, err := ListAll(ctx, s, "doc/attachments/", 3)
	require.NoError(t, err)
	assert.Len(t, all, 7)
	assert.Equal(t, "doc/attachments/06", all[6])
}

func TestMemoryStore_GetRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "k", []byte("0123456789"), "", nil))

	tests := []struct {
		start, end int64
		want       string
	}{
		{0, 3, "0123"},
		{0, 1023, "0123456789"},
		{8, 20, "89"},
		{12, 20, ""},
	}
	for _, tt := range tests {
		got, err := s.GetRange(ctx, "k", tt.start, tt.end)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}

func TestMemoryStore_CopyInPlaceReplacesMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "k", []byte("data"), "text/plain", map[string]string{"owner": "None", "stale": "1"}))

	require.NoError(t, s.CopyInPlace(ctx, "k", "image/png", map[string]string{"owner": "None"}))

	info, err := s.Head(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, map[string]string{"owner": "None"}, info.Metadata)
	assert.Equal(t, int64(4), info.Size)

	rc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "data", string(data))
	assert.Equal(t, 1, s.Copies())
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Head(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = s.CopyInPlace(ctx, "missing", "image/png", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIsDirectory(t *testing.T) {
	assert.True(t, IsDirectory("doc/attachments/"))
	assert.False(t, IsDirectory("doc/attachments/a.png"))
}
