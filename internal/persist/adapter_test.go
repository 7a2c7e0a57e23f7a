package persist

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"gemini-replica/internal/models"
	"gemini-replica/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingBackend records how many saves reached it
type countingBackend struct {
	*MemoryBackend
	saves   atomic.Int32
	loadErr error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{MemoryBackend: NewMemoryBackend()}
}

func (c *countingBackend) Load(ctx context.Context, key string) ([]byte, error) {
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return c.MemoryBackend.Load(ctx, key)
}

func (c *countingBackend) Save(ctx context.Context, key string, data []byte) error {
	c.saves.Add(1)
	return c.MemoryBackend.Save(ctx, key, data)
}

func (c *countingBackend) stored(t *testing.T) models.Snapshot {
	t.Helper()
	data, err := c.MemoryBackend.Load(context.Background(), DefaultKey)
	require.NoError(t, err)
	snap, err := Decode(data)
	require.NoError(t, err)
	return snap
}

func newTestAdapter(t *testing.T, backend Backend, debounce time.Duration) (*Adapter, *store.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st := store.New(store.WithLogger(logger))
	return NewAdapter(backend, st, WithDebounce(debounce), WithLogger(logger)), st
}

func TestHydrate_NoSnapshotKeepsDefaults(t *testing.T) {
	a, st := newTestAdapter(t, NewMemoryBackend(), 0)

	require.NoError(t, a.Hydrate(context.Background()))

	assert.True(t, st.Hydrated())
	assert.Len(t, st.Threads(), 1)
	assert.Equal(t, models.ThemeLight, st.Theme())
}

func TestHydrate_RestoresStoredSnapshot(t *testing.T) {
	backend := NewMemoryBackend()
	raw := `{
		"theme": "dark",
		"authenticated": true,
		"chats": [
			{"id": "5", "title": "New Chat 5", "createdAt": "2024-05-01T10:00:00Z", "messages": []},
			{"id": "1", "title": "Welcome to Gemini", "createdAt": "2024-05-01T09:00:00Z", "messages": [
				{"id": "1", "text": "Hello! How can I help you today?", "sender": "ai", "timestamp": "2024-05-01T09:00:00Z"}
			]}
		]
	}`
	require.NoError(t, backend.Save(context.Background(), DefaultKey, []byte(raw)))

	a, st := newTestAdapter(t, backend, 0)
	require.NoError(t, a.Hydrate(context.Background()))

	assert.True(t, st.Hydrated())
	assert.True(t, st.Authenticated())
	assert.Equal(t, models.ThemeDark, st.Theme())
	threads := st.Threads()
	require.Len(t, threads, 2)
	assert.Equal(t, "5", threads[0].ID)
	assert.Equal(t, "6", st.CreateThread())
}

func TestHydrate_MalformedSnapshotFallsBackToDefaults(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      `{"theme":`,
		"unknown theme": `{"theme":"sepia"}`,
		"duplicate ids": `{"chats":[{"id":"1"},{"id":"1"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			backend := NewMemoryBackend()
			require.NoError(t, backend.Save(context.Background(), DefaultKey, []byte(raw)))

			a, st := newTestAdapter(t, backend, 0)
			require.NoError(t, a.Hydrate(context.Background()))

			assert.True(t, st.Hydrated())
			assert.Equal(t, models.ThemeLight, st.Theme())
			assert.Len(t, st.Threads(), 1)
		})
	}
}

func TestHydrate_BackendErrorStillHydrates(t *testing.T) {
	backend := newCountingBackend()
	backend.loadErr = errors.New("disk on fire")

	a, st := newTestAdapter(t, backend, 0)
	err := a.Hydrate(context.Background())

	assert.ErrorIs(t, err, backend.loadErr)
	assert.True(t, st.Hydrated())
}

func TestHydrate_OnlyFirstCallApplies(t *testing.T) {
	backend := NewMemoryBackend()
	a, st := newTestAdapter(t, backend, 0)
	require.NoError(t, a.Hydrate(context.Background()))

	require.NoError(t, backend.Save(context.Background(), DefaultKey, []byte(`{"theme":"dark"}`)))
	require.NoError(t, a.Hydrate(context.Background()))

	assert.Equal(t, models.ThemeLight, st.Theme())
}

func TestStart_SavesOnChange(t *testing.T) {
	backend := newCountingBackend()
	a, st := newTestAdapter(t, backend, 0)
	require.NoError(t, a.Hydrate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	st.ToggleTheme()
	require.Eventually(t, func() bool { return backend.saves.Load() > 0 }, time.Second, 5*time.Millisecond)

	cancel()
	a.Wait()

	assert.Equal(t, models.ThemeDark, backend.stored(t).Theme)
}

func TestStart_DebounceCoalescesBursts(t *testing.T) {
	backend := newCountingBackend()
	a, st := newTestAdapter(t, backend, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	for range 10 {
		st.CreateThread()
	}
	require.Eventually(t, func() bool { return backend.saves.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	a.Wait()

	assert.Equal(t, int32(1), backend.saves.Load())
	assert.Len(t, backend.stored(t).Chats, 11)
}

func TestStart_FlushesPendingChangeOnCancel(t *testing.T) {
	backend := newCountingBackend()
	a, st := newTestAdapter(t, backend, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	st.Login()
	cancel()
	a.Wait()

	snap := backend.stored(t)
	assert.True(t, snap.Authenticated)
}

func TestStart_IgnoresProcessLocalEvents(t *testing.T) {
	backend := newCountingBackend()
	a, st := newTestAdapter(t, backend, 0)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	st.SetHydrated(true)
	time.Sleep(20 * time.Millisecond)

	cancel()
	a.Wait()
	assert.Equal(t, int32(0), backend.saves.Load())
}

func TestFlush_WritesBrowserCompatibleJSON(t *testing.T) {
	backend := NewMemoryBackend()
	a, st := newTestAdapter(t, backend, 0)
	st.AddMessage(store.WelcomeThreadID, models.MessageContent{Text: "note", Sender: models.SenderAssistant})

	require.NoError(t, a.Flush(context.Background()))

	data, err := backend.Load(context.Background(), DefaultKey)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "theme")
	assert.Contains(t, raw, "authenticated")
	assert.Contains(t, raw, "chats")
	assert.Contains(t, raw, "nextThreadId")

	chats := raw["chats"].([]any)
	first := chats[0].(map[string]any)
	assert.Contains(t, first, "createdAt")
	msgs := first["messages"].([]any)
	assert.Equal(t, "ai", msgs[0].(map[string]any)["sender"])
}

func TestAdapter_CustomKey(t *testing.T) {
	backend := NewMemoryBackend()
	st := store.New()
	a := NewAdapter(backend, st, WithKey("other"), WithKey(""))

	require.NoError(t, a.Flush(context.Background()))

	assert.Equal(t, "other", a.Key())
	_, err := backend.Load(context.Background(), "other")
	assert.NoError(t, err)
}

func TestFlush_SnapshotAlwaysRestorable(t *testing.T) {
	backend := NewMemoryBackend()
	a, st := newTestAdapter(t, backend, 0)
	st.CreateThread()
	st.AddMessage(store.WelcomeThreadID, models.MessageContent{Text: "no sender"})
	require.NoError(t, a.Flush(context.Background()))

	restarted, again := newTestAdapter(t, backend, 0)
	require.NoError(t, restarted.Hydrate(context.Background()))

	assert.Len(t, again.Threads(), 2)
}
