package responder

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// minRandomDelay is the minimum simulated "thinking" time (1.5 seconds)
	minRandomDelay = 1500 * time.Millisecond
	// maxRandomDelay is the exclusive upper bound of the thinking time (2.5 seconds)
	maxRandomDelay = 2500 * time.Millisecond
)

// getRandomDelay returns a random duration in [1.5s, 2.5s)
func getRandomDelay() time.Duration {
	rangeNanos := int64(maxRandomDelay - minRandomDelay)
	return minRandomDelay + time.Duration(rand.Int64N(rangeNanos))
}

type pendingReply struct {
	seq      uint64
	threadID string
	timer    *time.Timer
	fire     func()
}

// Manager schedules delayed assistant replies keyed by thread.
// A scheduled reply is never dropped: it fires after its delay, or
// immediately when the manager shuts down.
type Manager struct {
	logger         *zap.Logger
	delay          time.Duration
	useRandomDelay bool

	mu      sync.Mutex
	pending map[*pendingReply]struct{}
	seq     uint64
	closed  bool
	wg      sync.WaitGroup
}

// NewManager creates a new reply Manager.
// If delay is 0, every reply waits a random 1.5-2.5 seconds.
// Otherwise, the specified fixed delay is used (useful for testing).
func NewManager(logger *zap.Logger, delay time.Duration) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		logger:         logger.Named("responder"),
		delay:          delay,
		useRandomDelay: delay == 0,
		pending:        make(map[*pendingReply]struct{}),
	}
}

func (m *Manager) nextDelay() time.Duration {
	if m.useRandomDelay {
		return getRandomDelay()
	}
	return m.delay
}

// Schedule arranges for fire to run once after the reply delay.
// After Shutdown, fire runs synchronously.
func (m *Manager) Schedule(threadID string, fire func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("Manager closed, firing reply inline", zap.String("thread_id", threadID))
		fire()
		return
	}

	m.seq++
	r := &pendingReply{seq: m.seq, threadID: threadID, fire: fire}
	m.pending[r] = struct{}{}
	m.wg.Add(1)

	delay := m.nextDelay()
	r.timer = time.AfterFunc(delay, func() { m.run(r) })
	m.mu.Unlock()

	m.logger.Debug("Reply scheduled",
		zap.String("thread_id", threadID),
		zap.Duration("delay", delay))
}

// run fires a reply unless Shutdown already claimed it
func (m *Manager) run(r *pendingReply) {
	m.mu.Lock()
	_, ok := m.pending[r]
	delete(m.pending, r)
	m.mu.Unlock()

	if !ok {
		return
	}
	defer m.wg.Done()

	r.fire()
	m.logger.Debug("Reply fired", zap.String("thread_id", r.threadID))
}

// Pending returns the number of replies waiting to fire
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// PendingFor returns the number of replies waiting to fire for a thread
func (m *Manager) PendingFor(threadID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for r := range m.pending {
		if r.threadID == threadID {
			count++
		}
	}
	return count
}

// Shutdown fires every outstanding reply in scheduling order and waits
// for replies already in flight.
func (m *Manager) Shutdown() error {
	m.logger.Info("Shutting down...")

	m.mu.Lock()
	m.closed = true
	outstanding := make([]*pendingReply, 0, len(m.pending))
	for r := range m.pending {
		r.timer.Stop()
		outstanding = append(outstanding, r)
	}
	m.pending = make(map[*pendingReply]struct{})
	m.mu.Unlock()

	slices.SortFunc(outstanding, func(a, b *pendingReply) int {
		return cmp.Compare(a.seq, b.seq)
	})

	for _, r := range outstanding {
		r.fire()
		m.wg.Done()
	}
	m.wg.Wait()

	m.logger.Info("Shutdown complete", zap.Int("flushed_count", len(outstanding)))
	return nil
}
