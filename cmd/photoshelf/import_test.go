package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o750))
	for _, name := range []string{"a.jpg", "nested/b.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	t.Run("single file", func(t *testing.T) {
		files, err := collectFiles(filepath.Join(dir, "a.jpg"), false)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.jpg")}, files)
	})

	t.Run("directory requires recursion", func(t *testing.T) {
		_, err := collectFiles(dir, false)
		assert.Error(t, err)
	})

	t.Run("recursive", func(t *testing.T) {
		files, err := collectFiles(dir, true)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(dir, "a.jpg"),
			filepath.Join(dir, "nested", "b.png"),
		}, files)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := collectFiles(filepath.Join(dir, "nope"), true)
		assert.Error(t, err)
	})
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", detectContentType("x.png"))
	assert.Equal(t, "application/octet-stream", detectContentType("README"))
	assert.Equal(t, "application/octet-stream", detectContentType("x.unknownext"))
}
