package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gemini-replica/internal/models"
	"gemini-replica/internal/store"
)

const (
	// DefaultKey is the storage key the browser client used for its snapshot
	DefaultKey = "gemini-clone-storage"

	// DefaultDebounce coalesces bursts of changes into one write
	DefaultDebounce = 250 * time.Millisecond
)

// Adapter hydrates a Store from a Backend at startup and writes a snapshot
// back whenever a persisted field changes.
type Adapter struct {
	backend  Backend
	store    *store.Store
	key      string
	debounce time.Duration
	logger   *zap.Logger

	hydrateOnce sync.Once
	startOnce   sync.Once
	saveMu      sync.Mutex
	done        chan struct{}
}

// Option configures an Adapter
type Option func(*Adapter)

// WithKey sets the storage key
func WithKey(key string) Option {
	return func(a *Adapter) {
		if key != "" {
			a.key = key
		}
	}
}

// WithDebounce sets how long the adapter waits after a change before writing.
// Zero writes on every change.
func WithDebounce(d time.Duration) Option {
	return func(a *Adapter) {
		a.debounce = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates an Adapter for st backed by backend
func NewAdapter(backend Backend, st *store.Store, opts ...Option) *Adapter {
	a := &Adapter{
		backend:  backend,
		store:    st,
		key:      DefaultKey,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("persist")
	return a
}

// Key returns the storage key in use
func (a *Adapter) Key() string {
	return a.key
}

// Hydrate restores the stored snapshot into the store, then marks the store
// hydrated. A missing, unreadable or malformed snapshot leaves the defaults in
// place; the store is marked hydrated regardless. Only the first call has
// any effect. The returned error reports a backend failure.
func (a *Adapter) Hydrate(ctx context.Context) error {
	var loadErr error
	a.hydrateOnce.Do(func() {
		defer a.store.SetHydrated(true)

		data, err := a.backend.Load(ctx, a.key)
		if errors.Is(err, ErrNotFound) {
			a.logger.Info("No stored snapshot, starting with defaults", zap.String("key", a.key))
			return
		}
		if err != nil {
			a.logger.Warn("Failed to load snapshot, starting with defaults",
				zap.String("key", a.key), zap.Error(err))
			loadErr = fmt.Errorf("load snapshot: %w", err)
			return
		}

		snap, err := Decode(data)
		if err != nil {
			a.logger.Warn("Stored snapshot is malformed, starting with defaults",
				zap.String("key", a.key), zap.Error(err))
			return
		}
		if err := a.store.Restore(snap); err != nil {
			a.logger.Warn("Stored snapshot rejected, starting with defaults",
				zap.String("key", a.key), zap.Error(err))
			return
		}

		a.logger.Info("Snapshot restored",
			zap.String("key", a.key),
			zap.Int("thread_count", len(snap.Chats)))
	})
	return loadErr
}

// Decode parses and validates a serialized snapshot
func Decode(data []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return models.Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snap, nil
}

// Flush writes the current snapshot immediately
func (a *Adapter) Flush(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	data, err := json.Marshal(a.store.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := a.backend.Save(ctx, a.key, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	a.logger.Debug("Snapshot saved", zap.String("key", a.key), zap.Int("bytes", len(data)))
	return nil
}

// Start subscribes to the store and writes snapshots until ctx is cancelled.
// Pending changes are flushed on cancellation. The subscription is in place
// when Start returns. Calls after the first do nothing.
func (a *Adapter) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		events, cancel := a.store.Subscribe()
		go a.run(ctx, events, cancel)
	})
}

// Wait blocks until the loop started by Start has exited.
// It must not be called without Start.
func (a *Adapter) Wait() {
	<-a.done
}

func (a *Adapter) run(ctx context.Context, events <-chan store.Event, cancel func()) {
	defer close(a.done)
	defer cancel()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
		dirty  bool
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	save := func(ctx context.Context) {
		stopTimer()
		dirty = false
		if err := a.Flush(ctx); err != nil {
			a.logger.Error("Failed to persist snapshot", zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			if drainPersisted(events) {
				dirty = true
			}
			if dirty {
				save(context.WithoutCancel(ctx))
			}
			a.logger.Debug("Persist loop stopped")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if !ev.Persisted() {
				continue
			}
			dirty = true
			if a.debounce <= 0 {
				save(ctx)
				continue
			}
			stopTimer()
			timer = time.NewTimer(a.debounce)
			timerC = timer.C

		case <-timerC:
			timer = nil
			timerC = nil
			save(ctx)
		}
	}
}

// drainPersisted empties already-queued events and reports whether any of
// them touched persisted state
func drainPersisted(events <-chan store.Event) bool {
	found := false
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return found
			}
			found = found || ev.Persisted()
		default:
			return found
		}
	}
}
