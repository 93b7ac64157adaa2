package client

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewFileTokenStore(path)

	t.Run("missing file reads as no pair", func(t *testing.T) {
		access, refresh, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, access)
		assert.Empty(t, refresh)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, store.Save("acc-1", "ref-1"))

		access, refresh, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "acc-1", access)
		assert.Equal(t, "ref-1", refresh)
	})

	t.Run("file is owner-only", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("no unix permissions")
		}
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("uses the access_token and refresh_token keys", func(t *testing.T) {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"access_token"`)
		assert.Contains(t, string(data), `"refresh_token"`)
	})

	t.Run("a half-written pair reads as no pair", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"only-one"}`), 0o600))

		access, refresh, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, access)
		assert.Empty(t, refresh)
	})

	t.Run("clear removes the file", func(t *testing.T) {
		require.NoError(t, store.Save("acc-2", "ref-2"))
		require.NoError(t, store.Clear())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))

		// clearing twice is fine
		require.NoError(t, store.Clear())
	})
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()

	access, refresh, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, access)
	assert.Empty(t, refresh)

	require.NoError(t, store.Save("acc", "ref"))
	access, refresh, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "acc", access)
	assert.Equal(t, "ref", refresh)

	require.NoError(t, store.Clear())
	access, refresh, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}
