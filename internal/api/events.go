package api

import (
	"net/http"
	"sync"

	"go.uber.org/zap"

	"gemini-replica/internal/store"
)

// EventsHandler streams store changes over Server-Sent Events
type EventsHandler struct {
	store  *store.Store
	logger *zap.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(st *store.Store, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		store:   st,
		logger:  logger.Named("sse"),
		closing: make(chan struct{}),
	}
}

// Close ends every open stream and refuses new ones. http.Server.Shutdown
// does not cancel request contexts, so streams would otherwise hold it open.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() {
		close(h.closing)
		h.logger.Info("Closing event streams")
	})
}

// HandleEvents handles GET /api/events
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.closing:
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Warn("Streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, cancel := h.store.Subscribe()
	defer cancel()

	if _, err := w.Write([]byte("event: connected\ndata: {}\n\n")); err != nil {
		h.logger.Debug("Failed to send connected event", zap.Error(err))
		return
	}
	flusher.Flush()

	h.logger.Info("Client connected", zap.Int("subscribers", h.store.SubscriberCount()))

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Client disconnected")
			return
		case <-h.closing:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := store.FormatSSE(event)
			if err != nil {
				h.logger.Warn("Failed to format event", zap.Error(err))
				continue
			}
			if _, err := w.Write(data); err != nil {
				h.logger.Debug("Failed to write event", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}
