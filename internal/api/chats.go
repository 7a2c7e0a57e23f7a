package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gemini-replica/internal/models"
	"gemini-replica/internal/store"
)

// ChatHandler handles chat thread requests
type ChatHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(st *store.Store, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		store:  st,
		logger: logger.Named("http"),
	}
}

// SendMessageRequest is the composer payload
type SendMessageRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// SendMessageResponse carries the stored message and whether a reply is pending
type SendMessageResponse struct {
	Message    models.Message `json:"message"`
	Responding bool           `json:"responding"`
}

// List handles GET /api/chats with an optional ?q= title filter
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.SearchThreads(r.URL.Query().Get("q")))
}

// Create handles POST /api/chats
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.store.CreateThread()
	chat, ok := h.store.Thread(id)
	if !ok {
		// deleted between create and read
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// Get handles GET /api/chats/{id}
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chat, ok := h.store.Thread(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// Delete handles DELETE /api/chats/{id}. Deleting an unknown chat succeeds.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.store.DeleteThread(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage handles POST /api/chats/{id}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Send message failed: invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "Message text or image is required")
		return
	}

	msg, ok := h.store.AddMessage(id, models.MessageContent{
		Text:     req.Text,
		Sender:   models.SenderUser,
		ImageURL: req.ImageURL,
	})
	if !ok {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}

	writeJSON(w, http.StatusAccepted, SendMessageResponse{
		Message:    msg,
		Responding: h.store.IsResponding(id),
	})
}

// LoadOlder handles POST /api/chats/{id}/messages/older
func (h *ChatHandler) LoadOlder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.store.LoadOlderMessages(id) {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}

	chat, ok := h.store.Thread(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	writeJSON(w, http.StatusOK, chat)
}
