// Package session implements the Agent Session Manager (spec §4.5): the
// registry of interactive conversations, each owning a single long-lived
// processing task, a bounded event buffer, and at most one attached
// transport.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/eventbuffer"
)

// ErrNotFound is returned when an operation names an unknown session id.
var ErrNotFound = errors.New("session: not found")

// Transport is the live connection a client attaches through. Send must
// not block indefinitely; Disconnect closes the underlying connection.
// A WebSocket handler is the only real implementation.
type Transport interface {
	Send(ev *event.Event) error
	Disconnect()
}

// pendingPrompt bridges a mid-turn AskUserQuestion callback (running on
// the processing task) with the WebSocket-reading task that eventually
// delivers the user's answer. resultCh is a one-shot completion future:
// exactly one value is ever sent to it.
type pendingPrompt struct {
	questionID string
	startedAt  time.Time
	resultCh   chan askUserResult
}

type askUserResult struct {
	answers   map[string]interface{}
	cancelled bool
}

// Session is one interactive conversation.
type Session struct {
	mu sync.Mutex

	sessionID string

	buffer            *eventbuffer.Buffer
	lastActivity      time.Time
	completedAt       *time.Time
	lastEventType     event.Type
	lastTerminalEvent *event.Event

	connectedClientID string
	transport         Transport
	replayInProgress  bool
	isProcessing      bool

	pendingPrompt *pendingPrompt

	inputQueue []string
	wake       chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(id string, bufferCapacity int) *Session {
	return &Session{
		sessionID:    id,
		buffer:       eventbuffer.New(bufferCapacity),
		lastActivity: time.Now(),
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// SessionID returns the session's current registry key. It changes
// exactly once, on rekey from a pending_ placeholder to the SDK-assigned
// id.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// enqueue appends a user message to the input queue and wakes the
// processing task if it is waiting. Never blocks.
func (s *Session) enqueue(text string) {
	s.mu.Lock()
	s.inputQueue = append(s.inputQueue, text)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dequeue pops the next queued message, blocking until one arrives or ctx
// is done.
func (s *Session) dequeue(ctx context.Context) (string, bool) {
	for {
		s.mu.Lock()
		if len(s.inputQueue) > 0 {
			msg := s.inputQueue[0]
			s.inputQueue = s.inputQueue[1:]
			s.mu.Unlock()
			return msg, true
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-ctx.Done():
			return "", false
		}
	}
}

// StatusSnapshot builds the session_status payload sent immediately
// after a client attaches (§4.5.9). All fields are read under the
// session mutex in one pass.
func (s *Session) StatusSnapshot() *event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastActivity := s.lastActivity
	questionID := ""
	if s.pendingPrompt != nil {
		questionID = s.pendingPrompt.questionID
	}

	return &event.Event{
		Type:              event.TypeSessionStatus,
		BufferedCount:     s.buffer.Len(),
		CompletedAt:       s.completedAt,
		LastActivity:      &lastActivity,
		LastEventType:     s.lastEventType,
		IsProcessing:      s.isProcessing,
		WaitingForUser:    s.pendingPrompt != nil,
		PendingQuestionID: questionID,
	}
}
