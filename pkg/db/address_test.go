package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		addr string
		want AddressKind
	}{
		{"data/store.db", KindFile},
		{"/abs/store.db", KindFile},
		{":memory:", KindMemory},
		{"file:store.db?mode=ro", KindURI},
		{"libsql://example.turso.io", KindRemote},
		{"HTTPS://example.turso.io", KindRemote},
		{"ws://localhost:8080", KindRemote},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			a, err := ParseAddress(tt.addr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Kind)
			assert.Equal(t, tt.want == KindFile, a.FileBacked())
		})
	}
}

func TestDeleteFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is not an error", func(t *testing.T) {
		deleted, err := DeleteFile(filepath.Join(dir, "nope.db"))
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("memory and uri are skipped", func(t *testing.T) {
		for _, addr := range []string{":memory:", "file:x.db", "libsql://host", ""} {
			deleted, err := DeleteFile(addr)
			require.NoError(t, err)
			assert.False(t, deleted, addr)
		}
	})

	t.Run("directory is skipped", func(t *testing.T) {
		deleted, err := DeleteFile(dir)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("existing file is removed", func(t *testing.T) {
		path := filepath.Join(dir, "store.db")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		deleted, err := DeleteFile(path)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})
}
