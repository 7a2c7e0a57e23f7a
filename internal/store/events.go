package store

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType names the kind of state change a subscriber is notified about
type EventType string

const (
	EventHydrated   EventType = "hydrated"
	EventTheme      EventType = "theme"
	EventAuth       EventType = "auth"
	EventThreads    EventType = "threads"
	EventMessage    EventType = "message"
	EventHistory    EventType = "history"
	EventResponding EventType = "responding"
)

// subscriberBuffer is the per-subscriber channel capacity
const subscriberBuffer = 64

// Event is a state-change notification
type Event struct {
	Type     EventType `json:"type"`
	ThreadID string    `json:"threadId,omitempty"`
	At       time.Time `json:"at"`
}

// Persisted reports whether the change touches a field that is snapshotted
// to durable storage. Hydration and responding status are process-local.
func (e Event) Persisted() bool {
	switch e.Type {
	case EventHydrated, EventResponding:
		return false
	default:
		return true
	}
}

// broadcaster fans events out to subscriber channels
type broadcaster struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
	logger  *zap.Logger
}

func newBroadcaster(logger *zap.Logger) *broadcaster {
	return &broadcaster{
		clients: make(map[chan Event]struct{}),
		logger:  logger,
	}
}

func (b *broadcaster) subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	b.clients[ch] = struct{}{}

	b.logger.Debug("Client subscribed", zap.Int("total_clients", len(b.clients)))
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[ch]; !ok {
		return
	}
	delete(b.clients, ch)
	close(ch)

	b.logger.Debug("Client unsubscribed", zap.Int("total_clients", len(b.clients)))
}

// broadcast never blocks: a subscriber with a full buffer misses the event
func (b *broadcaster) broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.clients {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Client channel full, skipping event",
				zap.String("type", string(event.Type)),
				zap.String("thread_id", event.ThreadID))
		}
	}
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// FormatSSE formats an event as a Server-Sent Events frame
func FormatSSE(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return []byte("event: " + string(event.Type) + "\ndata: " + string(data) + "\n\n"), nil
}
