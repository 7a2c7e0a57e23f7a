// Package store holds the session state: theme, authentication, chat
// threads and the simulated assistant's responding status. It is the single
// writer of truth; every mutation goes through a Store method and is
// announced to subscribers.
package store

import (
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gemini-replica/internal/logic"
	"gemini-replica/internal/models"
)

const (
	// WelcomeThreadID is the id of the thread a fresh or logged-out session holds
	WelcomeThreadID = "1"

	// OlderBatchSize is the number of synthetic messages LoadOlderMessages prepends
	OlderBatchSize = 10

	olderMessageSpacing = time.Minute
)

// ReplyScheduler runs fire once after the simulated thinking delay
type ReplyScheduler interface {
	Schedule(threadID string, fire func())
}

// immediateScheduler fires replies synchronously; used when no scheduler is configured
type immediateScheduler struct{}

func (immediateScheduler) Schedule(_ string, fire func()) { fire() }

// thread wraps a ChatThread so scheduled replies can tell a thread apart
// from a later thread that reuses its id.
type thread struct {
	models.ChatThread
}

// Store is the process-wide session state container.
// It is safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	hydrated      bool
	theme         models.Theme
	authenticated bool
	threads       []*thread // most recently created first
	byID          map[string]*thread
	nextThreadID  int
	pending       map[string]int // thread id -> replies in flight

	scheduler   ReplyScheduler
	broadcaster *broadcaster
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithScheduler sets the scheduler for simulated replies
func WithScheduler(s ReplyScheduler) Option {
	return func(st *Store) {
		st.scheduler = s
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(st *Store) {
		st.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(st *Store) {
		st.now = now
	}
}

// WithIDGenerator overrides the message id generator
func WithIDGenerator(newID func() string) Option {
	return func(st *Store) {
		st.newID = newID
	}
}

// New creates a Store holding the default session: light theme, logged out,
// and the single welcome thread.
func New(opts ...Option) *Store {
	s := &Store{
		theme:     models.ThemeLight,
		pending:   make(map[string]int),
		scheduler: immediateScheduler{},
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.Named("store")
	s.broadcaster = newBroadcaster(s.logger)
	s.resetThreads()
	s.nextThreadID = 2

	return s
}

// resetThreads replaces all threads with the welcome thread. Caller holds mu.
func (s *Store) resetThreads() {
	now := s.now()
	welcome := &thread{models.ChatThread{
		ID:        WelcomeThreadID,
		Title:     logic.WelcomeTitle,
		CreatedAt: now,
		Messages:  []models.Message{s.greeting(now)},
	}}
	s.threads = []*thread{welcome}
	s.byID = map[string]*thread{welcome.ID: welcome}
}

func (s *Store) greeting(at time.Time) models.Message {
	return models.Message{
		ID:        s.newID(),
		Text:      logic.GreetingText,
		Sender:    models.SenderAssistant,
		Timestamp: at,
	}
}

func (s *Store) notify(t EventType, threadID string) {
	s.broadcaster.broadcast(Event{Type: t, ThreadID: threadID, At: s.now()})
}

// Subscribe registers a listener for state changes. The returned cancel
// function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := s.broadcaster.subscribe()
	var once sync.Once
	return ch, func() {
		once.Do(func() { s.broadcaster.unsubscribe(ch) })
	}
}

// SubscriberCount returns the number of active subscribers
func (s *Store) SubscriberCount() int {
	return s.broadcaster.count()
}

// SetHydrated records whether persisted state has been loaded.
// Once true the flag stays true.
func (s *Store) SetHydrated(flag bool) {
	s.mu.Lock()
	if s.hydrated || !flag {
		s.mu.Unlock()
		return
	}
	s.hydrated = true
	s.mu.Unlock()

	s.logger.Info("Session hydrated")
	s.notify(EventHydrated, "")
}

// Hydrated reports whether startup hydration has completed
func (s *Store) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Theme returns the current theme
func (s *Store) Theme() models.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// ToggleTheme flips between light and dark and returns the new theme
func (s *Store) ToggleTheme() models.Theme {
	s.mu.Lock()
	s.theme = s.theme.Toggle()
	theme := s.theme
	s.mu.Unlock()

	s.logger.Debug("Theme toggled", zap.String("theme", string(theme)))
	s.notify(EventTheme, "")
	return theme
}

// Authenticated reports whether the user has signed in
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Login marks the session authenticated. Credentials are checked by the caller.
func (s *Store) Login() {
	s.mu.Lock()
	s.authenticated = true
	s.mu.Unlock()

	s.logger.Info("User logged in")
	s.notify(EventAuth, "")
}

// Logout clears authentication and discards all chat history, leaving only
// a fresh welcome thread.
func (s *Store) Logout() {
	s.mu.Lock()
	s.authenticated = false
	discarded := len(s.threads)
	s.resetThreads()
	s.mu.Unlock()

	s.logger.Info("User logged out", zap.Int("discarded_threads", discarded))
	s.notify(EventAuth, "")
	s.notify(EventThreads, "")
}

// Thread returns a copy of the thread with the given id
func (s *Store) Thread(id string) (models.ChatThread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return models.ChatThread{}, false
	}
	return t.Clone(), true
}

// Threads returns copies of all threads, most recently created first
func (s *Store) Threads() []models.ChatThread {
	return s.SearchThreads("")
}

// SearchThreads returns the threads whose title contains term, ignoring case
func (s *Store) SearchThreads(term string) []models.ChatThread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ChatThread, 0, len(s.threads))
	for _, t := range s.threads {
		if logic.MatchTitle(t.Title, term) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// CreateThread prepends a new thread with a greeting and returns its id.
// Ids come from a monotonic counter and are never reused.
func (s *Store) CreateThread() string {
	s.mu.Lock()
	id := strconv.Itoa(s.nextThreadID)
	for s.byID[id] != nil {
		s.nextThreadID++
		id = strconv.Itoa(s.nextThreadID)
	}
	s.nextThreadID++

	now := s.now()
	t := &thread{models.ChatThread{
		ID:        id,
		Title:     logic.FormatThreadTitle(id),
		CreatedAt: now,
		Messages:  []models.Message{s.greeting(now)},
	}}
	s.threads = append([]*thread{t}, s.threads...)
	s.byID[id] = t
	s.mu.Unlock()

	s.logger.Info("Thread created", zap.String("thread_id", id))
	s.notify(EventThreads, id)
	return id
}

// DeleteThread removes a thread. Deleting an unknown id changes nothing.
func (s *Store) DeleteThread(id string) {
	s.mu.Lock()
	t, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("Delete of unknown thread ignored", zap.String("thread_id", id))
		return
	}
	delete(s.byID, id)
	s.threads = slices.DeleteFunc(s.threads, func(x *thread) bool { return x == t })
	s.mu.Unlock()

	s.logger.Info("Thread deleted", zap.String("thread_id", id))
	s.notify(EventThreads, id)
}

// AddMessage appends a message to a thread and returns it. It reports false,
// and does nothing, when the thread does not exist or the sender is unknown.
// A user message schedules a simulated assistant reply on the same thread.
func (s *Store) AddMessage(threadID string, content models.MessageContent) (models.Message, bool) {
	// a snapshot holding an unknown sender would be rejected on restore
	if !content.Sender.Valid() {
		s.logger.Warn("Message with unknown sender dropped",
			zap.String("thread_id", threadID),
			zap.String("sender", string(content.Sender)))
		return models.Message{}, false
	}

	s.mu.Lock()
	t, ok := s.byID[threadID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("Message for unknown thread dropped", zap.String("thread_id", threadID))
		return models.Message{}, false
	}

	msg := models.Message{
		ID:        s.newID(),
		Text:      content.Text,
		Sender:    content.Sender,
		Timestamp: s.now(),
		ImageURL:  content.ImageURL,
	}
	t.Messages = append(t.Messages, msg)

	fromUser := msg.Sender == models.SenderUser
	if fromUser {
		s.pending[threadID]++
	}
	s.mu.Unlock()

	s.logger.Debug("Message added",
		zap.String("thread_id", threadID),
		zap.String("message_id", msg.ID),
		zap.String("sender", string(msg.Sender)),
		zap.Bool("has_image", msg.ImageURL != ""))
	s.notify(EventMessage, threadID)

	if fromUser {
		s.notify(EventResponding, threadID)
		text := content.Text
		s.scheduler.Schedule(threadID, func() { s.deliverReply(t, text) })
	}

	return msg, true
}

// deliverReply appends the simulated reply if target is still the thread
// registered under its id, then clears one pending reply.
func (s *Store) deliverReply(target *thread, userText string) {
	threadID := target.ID

	s.mu.Lock()
	delivered := false
	if s.byID[threadID] == target {
		target.Messages = append(target.Messages, models.Message{
			ID:        s.newID(),
			Text:      logic.FormatSimulatedReply(userText),
			Sender:    models.SenderAssistant,
			Timestamp: s.now(),
		})
		delivered = true
	}
	if s.pending[threadID] > 1 {
		s.pending[threadID]--
	} else {
		delete(s.pending, threadID)
	}
	s.mu.Unlock()

	if delivered {
		s.logger.Debug("Simulated reply delivered", zap.String("thread_id", threadID))
		s.notify(EventMessage, threadID)
	} else {
		s.logger.Debug("Thread gone, simulated reply discarded", zap.String("thread_id", threadID))
	}
	s.notify(EventResponding, threadID)
}

// LoadOlderMessages prepends a batch of synthetic history, strictly older
// than the thread's oldest message. It reports false for an unknown thread.
func (s *Store) LoadOlderMessages(threadID string) bool {
	s.mu.Lock()
	t, ok := s.byID[threadID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	oldest := s.now()
	for _, m := range t.Messages {
		if m.Timestamp.Before(oldest) {
			oldest = m.Timestamp
		}
	}

	count := len(t.Messages)
	batch := make([]models.Message, OlderBatchSize)
	for k := range OlderBatchSize {
		sender := models.SenderUser
		if k%2 == 1 {
			sender = models.SenderAssistant
		}
		// generation k lands at index OlderBatchSize-1-k so the batch reads oldest first
		batch[OlderBatchSize-1-k] = models.Message{
			ID:        s.newID(),
			Text:      logic.FormatOlderMessage(count + k + 1),
			Sender:    sender,
			Timestamp: oldest.Add(-time.Duration(k+1) * olderMessageSpacing),
		}
	}
	t.Messages = append(batch, t.Messages...)
	total := len(t.Messages)
	s.mu.Unlock()

	s.logger.Debug("Older messages loaded",
		zap.String("thread_id", threadID),
		zap.Int("message_count", total))
	s.notify(EventHistory, threadID)
	return true
}

// Responding reports whether any simulated reply is in flight
func (s *Store) Responding() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending) > 0
}

// IsResponding reports whether a simulated reply is in flight for a thread
func (s *Store) IsResponding(threadID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[threadID] > 0
}

// State returns the session read model
func (s *Store) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	responding := make([]string, 0, len(s.pending))
	for id := range s.pending {
		responding = append(responding, id)
	}
	sort.Strings(responding)

	return models.SessionState{
		Hydrated:          s.hydrated,
		Theme:             s.theme,
		Authenticated:     s.authenticated,
		Responding:        len(s.pending) > 0,
		RespondingThreads: responding,
		ThreadCount:       len(s.threads),
	}
}

// Snapshot returns the durable subset of the state
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]models.ChatThread, len(s.threads))
	for i, t := range s.threads {
		chats[i] = t.Clone()
	}

	return models.Snapshot{
		Theme:         s.theme,
		Authenticated: s.authenticated,
		Chats:         chats,
		NextThreadID:  s.nextThreadID,
	}
}

// Restore replaces theme, authentication and threads with a snapshot.
// A snapshot without chats keeps the current threads.
func (s *Store) Restore(snap models.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if snap.Theme != "" {
		s.theme = snap.Theme
	}
	s.authenticated = snap.Authenticated

	if snap.Chats != nil {
		s.threads = make([]*thread, len(snap.Chats))
		s.byID = make(map[string]*thread, len(snap.Chats))
		for i, c := range snap.Chats {
			t := &thread{c.Clone()}
			s.threads[i] = t
			s.byID[c.ID] = t
		}
	}

	next := max(snap.NextThreadID, s.nextThreadID)
	for id := range s.byID {
		if n, err := strconv.Atoi(id); err == nil && n >= next {
			next = n + 1
		}
	}
	s.nextThreadID = next
	threadCount := len(s.threads)
	s.mu.Unlock()

	s.logger.Info("Session restored",
		zap.Int("thread_count", threadCount),
		zap.Int("next_thread_id", next))
	s.notify(EventTheme, "")
	s.notify(EventAuth, "")
	s.notify(EventThreads, "")
	return nil
}
