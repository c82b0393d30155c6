package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalImageStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalImageStore(dir)
	require.NoError(t, err)

	res, err := s.Upload(ctx, "u1", "Me.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Filename, ".png"))
	assert.Equal(t, "/uploads/"+res.Filename, res.URL)

	raw, err := os.ReadFile(filepath.Join(dir, res.Filename))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(raw))

	// Ownership survives a restart.
	reopened, err := NewLocalImageStore(dir)
	require.NoError(t, err)
	assert.ErrorIs(t, reopened.Delete(ctx, "u2", res.ID), ErrImageNotFound)
	require.NoError(t, reopened.Delete(ctx, "u1", res.ID))
	assert.ErrorIs(t, reopened.Delete(ctx, "u1", res.ID), ErrImageNotFound)

	_, err = os.Stat(filepath.Join(dir, res.Filename))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalImageStore_ExtensionFromContentType(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalImageStore(dir)
	require.NoError(t, err)

	res, err := s.Upload(ctx, "u1", "x.html", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(res.Filename))
	assert.NotContains(t, res.URL, ".html")
}

func TestImageExt(t *testing.T) {
	assert.Equal(t, ".png", imageExt("image/png"))
	assert.Equal(t, ".webp", imageExt("image/webp"))
	assert.Equal(t, ".jpg", imageExt("image/jpeg"))
	assert.Equal(t, ".jpg", imageExt("application/octet-stream"))
}

func TestIsValidImageType(t *testing.T) {
	assert.True(t, IsValidImageType("image/jpeg"))
	assert.True(t, IsValidImageType("image/webp"))
	assert.False(t, IsValidImageType("image/svg+xml"))
	assert.False(t, IsValidImageType("text/html"))
}
