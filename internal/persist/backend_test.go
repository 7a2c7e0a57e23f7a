package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gemini-replica/internal/db"
)

func newBackends(t *testing.T) map[string]Backend {
	t.Helper()

	database, err := db.NewDB(db.DriverPure, filepath.Join(t.TempDir(), "persist.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())

	files, err := NewFileBackend(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   files,
		"sql":    NewSQLBackend(database),
	}
}

func TestBackends_Contract(t *testing.T) {
	ctx := context.Background()

	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := backend.Load(ctx, DefaultKey)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, backend.Save(ctx, DefaultKey, []byte(`{"theme":"light"}`)))
			require.NoError(t, backend.Save(ctx, DefaultKey, []byte(`{"theme":"dark"}`)))

			got, err := backend.Load(ctx, DefaultKey)
			require.NoError(t, err)
			assert.JSONEq(t, `{"theme":"dark"}`, string(got))

			require.NoError(t, backend.Delete(ctx, DefaultKey))
			_, err = backend.Load(ctx, DefaultKey)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, backend.Delete(ctx, DefaultKey), ErrNotFound)
		})
	}
}

func TestMemoryBackend_CopiesData(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	data := []byte("abc")
	require.NoError(t, backend.Save(ctx, "k", data))
	data[0] = 'x'

	got, err := backend.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileBackend_WritesJSONFileWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, backend.Save(context.Background(), DefaultKey, []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DefaultKey+".json", entries[0].Name())
}

func TestFileBackend_RejectsPathKeys(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", `a\b`, ".."} {
		assert.Error(t, backend.Save(context.Background(), key, []byte(`{}`)), key)
	}
}

func TestNewFileBackend_EmptyDir(t *testing.T) {
	_, err := NewFileBackend("")
	assert.Error(t, err)
}
