package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/push"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/safego"
)

const moduleName = "session"

// Timing constants from §4.5.
const (
	IdleTimeout     = 30 * time.Minute
	GracePeriod     = 5 * time.Second
	AskUserTimeout  = 55 * time.Second
	BufferCapacity  = 100
	cleanupInterval = 60 * time.Second
)

// Manager owns the registry of live sessions plus the background
// cleanup loop that evicts idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	runner *runner.Runner
	push   *push.Fanout

	cleanupCancel context.CancelFunc
}

func NewManager(r *runner.Runner, fanout *push.Fanout) *Manager {
	return &Manager{sessions: map[string]*Session{}, runner: r, push: fanout}
}

// StartCleanupLoop launches the 60-second idle-eviction scan. Call once
// at process startup.
func (m *Manager) StartCleanupLoop(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cleanupCancel = cancel
	safego.Go(ctx, func() { m.cleanupLoop(ctx) })
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

// evictIdle scans under the registry mutex but terminates outside it, so
// the mutex is never held across a session join.
func (m *Manager) evictIdle() {
	horizon := time.Now().Add(-IdleTimeout)

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		s.mu.Lock()
		last := s.lastActivity
		s.mu.Unlock()
		if last.Before(horizon) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.Terminate(id)
	}
}

func newPendingID() string {
	return "pending_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GetOrCreate refreshes last_activity and returns the existing session
// when requestedID is present and registered; otherwise it creates a new
// session under a fresh pending_ id and starts its processing task.
func (m *Manager) GetOrCreate(ctx context.Context, requestedID string) *Session {
	m.mu.Lock()
	if requestedID != "" {
		if s, ok := m.sessions[requestedID]; ok {
			s.mu.Lock()
			s.lastActivity = time.Now()
			s.mu.Unlock()
			m.mu.Unlock()
			return s
		}
	}

	id := newPendingID()
	s := newSession(id, BufferCapacity)
	m.sessions[id] = s
	m.mu.Unlock()

	taskCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	safego.Go(taskCtx, func() { m.processingLoop(taskCtx, s) })

	return s
}

// Get returns the session currently registered under id, if any.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of currently registered sessions, for the
// background-tasks monitoring endpoint.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// rekey moves a session from its current registry key to newID. Steps,
// all under the registry mutex: remove the current binding; if newID is
// already bound by a different session, terminate that colliding session
// out-of-band (outside this lock, via a goroutine, to avoid a self-join
// deadlock); install the session under newID.
func (m *Manager) rekey(s *Session, newID string) {
	m.mu.Lock()
	oldID := s.sessionID
	delete(m.sessions, oldID)

	if colliding, ok := m.sessions[newID]; ok && colliding != s {
		delete(m.sessions, newID)
		safego.Go(context.Background(), func() { m.terminateSession(colliding) })
	}

	s.sessionID = newID
	m.sessions[newID] = s
	m.mu.Unlock()

	logger.InfoX(moduleName, "session rekeyed %s -> %s", oldID, newID)
}

// Terminate cancels the session's processing task, joins it, and removes
// it from the registry. Idempotent: terminating an unknown or
// already-gone id is a no-op.
func (m *Manager) Terminate(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.terminateSession(s)
}

// terminateSession cancels and joins a session directly, independent of
// its current registry key. Used both by Terminate(id) and by rekey's
// out-of-band eviction of a colliding session that has already been
// unlinked from the registry under its old key.
func (m *Manager) terminateSession(s *Session) {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// TerminateAll concurrently terminates every registered session. Called
// once, on process shutdown.
func (m *Manager) TerminateAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m.Terminate(id)
		}(id)
	}
	wg.Wait()

	if m.cleanupCancel != nil {
		m.cleanupCancel()
	}
}

// dispatch applies the event dispatch rules (§4.5.4): send to an
// attached, non-replaying client; on send failure (or no such client),
// buffer instead. Every terminal event is recorded as the session's
// last_terminal_event. With no client attached, or after a failed send, it
// is not also appended to the bounded buffer — it must survive buffer
// overflow, and Attach()'s replay snapshot already appends
// last_terminal_event when it isn't already present in the buffer, so a
// second copy there would cost it a FIFO slot for nothing (spec §8
// Scenario B: 150 text events + complete over a 100-capacity buffer must
// replay chunks 50..149 plus one terminal event, 101 events total). While
// an attached client is still replaying, a terminal event is buffered like
// any other so FinishReplay delivers it in order.
func (m *Manager) dispatch(s *Session, ev *event.Event) {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.lastEventType = ev.Type
	terminal := ev.IsTerminal()
	if terminal {
		s.lastTerminalEvent = ev
		if ev.Type == event.TypeComplete {
			now := time.Now()
			s.completedAt = &now
		}
	}
	clientPresent := s.transport != nil && !s.replayInProgress
	transport := s.transport
	s.mu.Unlock()

	if clientPresent {
		if err := transport.Send(ev); err == nil {
			return
		}
		if terminal {
			logger.WarnX(moduleName, "send failed for session %s, terminal event retained via last_terminal_event", s.SessionID())
			return
		}
		logger.WarnX(moduleName, "send failed for session %s, buffering event instead", s.SessionID())
	} else if terminal && transport == nil {
		return
	}

	s.mu.Lock()
	s.buffer.Append(ev)
	s.mu.Unlock()
}
