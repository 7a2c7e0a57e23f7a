package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"gemini-replica/internal/countries"
	"gemini-replica/internal/store"
)

// CountryLister provides the country directory
type CountryLister interface {
	Countries(ctx context.Context) ([]countries.Country, error)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher interface for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Router holds the HTTP multiplexer and dependencies
type Router struct {
	mux              *http.ServeMux
	sessionHandler   *SessionHandler
	chatHandler      *ChatHandler
	eventsHandler    *EventsHandler
	countriesHandler *CountriesHandler
	staticDir        string
	logger           *zap.Logger
}

// NewRouter creates a new router with all routes configured.
// An empty staticDir disables static file serving.
func NewRouter(st *store.Store, directory CountryLister, staticDir string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		mux:              http.NewServeMux(),
		sessionHandler:   NewSessionHandler(st, logger),
		chatHandler:      NewChatHandler(st, logger),
		eventsHandler:    NewEventsHandler(st, logger),
		countriesHandler: NewCountriesHandler(directory, logger),
		staticDir:        staticDir,
		logger:           logger.Named("http"),
	}
	r.setupRoutes()
	return r
}

// setupRoutes configures all HTTP routes
func (r *Router) setupRoutes() {
	r.mux.HandleFunc("GET /health", HealthHandler)

	// Session and auth
	r.mux.HandleFunc("GET /api/session", r.sessionHandler.Get)
	r.mux.HandleFunc("POST /api/session/theme", r.sessionHandler.ToggleTheme)
	r.mux.HandleFunc("POST /api/auth/otp", r.sessionHandler.RequestOTP)
	r.mux.HandleFunc("POST /api/auth/verify", r.sessionHandler.VerifyOTP)
	r.mux.HandleFunc("POST /api/auth/logout", r.sessionHandler.Logout)

	// Chats
	r.mux.HandleFunc("GET /api/chats", r.chatHandler.List)
	r.mux.HandleFunc("POST /api/chats", r.chatHandler.Create)
	r.mux.HandleFunc("GET /api/chats/{id}", r.chatHandler.Get)
	r.mux.HandleFunc("DELETE /api/chats/{id}", r.chatHandler.Delete)
	r.mux.HandleFunc("POST /api/chats/{id}/messages", r.chatHandler.SendMessage)
	r.mux.HandleFunc("POST /api/chats/{id}/messages/older", r.chatHandler.LoadOlder)

	r.mux.HandleFunc("GET /api/events", r.eventsHandler.HandleEvents)
	r.mux.HandleFunc("GET /api/countries", r.countriesHandler.List)

	// Static file serving (for frontend)
	if r.staticDir != "" {
		r.mux.HandleFunc("GET /", r.serveStatic)
	}
}

// serveStatic serves static files from the static directory
func (r *Router) serveStatic(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	filePath := filepath.Join(r.staticDir, filepath.FromSlash(filepath.Clean("/"+path)))

	// Serve index.html for SPA routing
	if info, err := os.Stat(filePath); err != nil || info.IsDir() {
		filePath = filepath.Join(r.staticDir, "index.html")
	}

	http.ServeFile(w, req, filePath)
}

// CloseStreams ends open event streams. Register it with
// http.Server.RegisterOnShutdown so a graceful shutdown does not wait on them.
func (r *Router) CloseStreams() {
	r.eventsHandler.Close()
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	// Add CORS headers for development
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if req.Method == http.MethodOptions {
		r.logger.Debug("CORS preflight", zap.String("path", req.URL.Path))
		w.WriteHeader(http.StatusOK)
		return
	}

	// Skip logging for static files, health checks, and the event stream
	shouldLog := strings.HasPrefix(req.URL.Path, "/api/") && req.URL.Path != "/api/events"

	wrapped := newResponseWriter(w)
	r.mux.ServeHTTP(wrapped, req)

	if shouldLog {
		r.logger.Info("Request completed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)))
	}
}
