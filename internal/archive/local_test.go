package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karlseb/ttpharvest/internal/archive"
)

func TestNewLocalProvider(t *testing.T) {
	t.Run("ValidBaseDir", func(t *testing.T) {
		provider, err := archive.NewLocalProvider(t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, provider)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := archive.NewLocalProvider("   ")
		assert.Error(t, err)
	})

	t.Run("CreatesAbsentBaseDir", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "archive", "run")
		_, err := archive.NewLocalProvider(base)
		require.NoError(t, err)

		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		_, err := archive.NewLocalProvider(file)
		assert.Error(t, err)
	})
}

func TestLocalProviderSave(t *testing.T) {
	base := t.TempDir()
	provider, err := archive.NewLocalProvider(base)
	require.NoError(t, err)

	t.Run("NestedObjectName", func(t *testing.T) {
		name := "run-1/2025/10/09/abcd1234.html"
		body := []byte("<html><body>advisory</body></html>")
		require.NoError(t, provider.Save(context.Background(), name, body))

		got, err := os.ReadFile(filepath.Join(base, filepath.FromSlash(name)))
		require.NoError(t, err)
		assert.Equal(t, body, got)
	})

	t.Run("EmptyObjectName", func(t *testing.T) {
		assert.Error(t, provider.Save(context.Background(), "", []byte("data")))
	})

	t.Run("PathTraversal", func(t *testing.T) {
		err := provider.Save(context.Background(), "../escape.html", []byte("data"))
		assert.Error(t, err)
	})
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, time.October, 9, 0, 0, 0, 0, time.UTC)
	name := archive.ObjectName("run-1", published, "https://example.gov/advisory/aa25-001a")

	assert.True(t, len(name) > len("run-1/2025/10/09/"))
	assert.Contains(t, name, "run-1/2025/10/09/")
	assert.Contains(t, name, ".html")

	// Same URL, same key; different URL, different key.
	again := archive.ObjectName("run-1", published, "https://example.gov/advisory/aa25-001a")
	other := archive.ObjectName("run-1", published, "https://example.gov/advisory/aa25-002b")
	assert.Equal(t, name, again)
	assert.NotEqual(t, name, other)
}
