package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/mechai/internal/config"
)

func TestLocalPutOpen(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx, config.MinIOConfig{}, t.TempDir(), 1024)
	require.NoError(t, err)
	assert.Equal(t, "local", store.Backend())

	key, err := store.Put(ctx, "parts", "Bracket.STEP", strings.NewReader("ISO-10303-21;"), 13, "application/step")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "parts/"))
	assert.True(t, strings.HasSuffix(key, ".step"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "ISO-10303-21;", string(data))

	_, err = store.Open(ctx, "parts/missing.step")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Open(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestReadPreviewCachesAndLimits(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocal(dir, 8, 64)
	require.NoError(t, err)

	svg := `<svg><rect width="4" height="2"/></svg>`
	key, err := store.Put(ctx, "previews", "part.svg", strings.NewReader(svg), int64(len(svg)), "image/svg+xml")
	require.NoError(t, err)

	got, err := store.ReadPreview(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, svg, got)

	// served from the cache after the file is gone
	require.NoError(t, os.Remove(filepath.Join(dir, filepath.FromSlash(key))))
	got, err = store.ReadPreview(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, svg, got)

	big := strings.Repeat("x", 65)
	bigKey, err := store.Put(ctx, "previews", "big.svg", strings.NewReader(big), int64(len(big)), "image/svg+xml")
	require.NoError(t, err)
	_, err = store.ReadPreview(ctx, bigKey)
	assert.ErrorIs(t, err, ErrPreviewTooLarge)
}
