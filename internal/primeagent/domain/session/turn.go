package session

import (
	"context"
	"io"
	"time"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
	"github.com/prime-system/prime-agent/pkg/logger"
)

// processingLoop is the session's single long-lived task (§4.5.2): it
// pulls queued user messages one at a time and runs each to completion,
// until the task's context is cancelled. Exactly one of these runs per
// session for its entire lifetime.
func (m *Manager) processingLoop(ctx context.Context, s *Session) {
	defer m.cleanupSession(s)

	for {
		text, ok := s.dequeue(ctx)
		if !ok {
			return
		}
		m.runTurn(ctx, s, text)
	}
}

// runTurn drives one prompt through the Runner, dispatching each
// translated event as it arrives. A session_id event that differs from
// the session's current key triggers a rekey before the event itself is
// dispatched, so any client attaching after this point addresses the
// session by its final id.
func (m *Manager) runTurn(ctx context.Context, s *Session, text string) {
	s.mu.Lock()
	s.isProcessing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	opts := runner.Options{
		SessionID:          s.SessionID(),
		PermissionCallback: m.permissionCallback(s),
	}

	sr := m.runner.Run(ctx, text, opts)
	defer sr.Close()

	for {
		ev, err := sr.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			logger.ErrorX(moduleName, "session %s: turn stream error: %v", s.SessionID(), err)
			m.dispatch(s, event.Err(err.Error(), false))
			return
		}

		if ev.Type == event.TypeSessionID && ev.SessionID != "" && ev.SessionID != s.SessionID() {
			m.rekey(s, ev.SessionID)
		}

		m.dispatch(s, ev)

		if ev.IsTerminal() {
			m.offerGracePeriod(ctx, s)
			return
		}
	}
}

// offerGracePeriod implements §4.5.6: if nobody is attached when a turn
// completes, wait briefly for a reconnect before sending an offline push
// notification. A client attaching during the wait cancels the
// notification; process shutdown (ctx.Done) abandons it silently.
func (m *Manager) offerGracePeriod(ctx context.Context, s *Session) {
	s.mu.Lock()
	attached := s.transport != nil
	s.mu.Unlock()
	if attached {
		return
	}

	select {
	case <-time.After(GracePeriod):
	case <-ctx.Done():
		return
	}

	s.mu.Lock()
	stillUnattached := s.transport == nil
	sessionID := s.sessionID
	s.mu.Unlock()
	if !stillUnattached || m.push == nil {
		return
	}

	summary := m.push.Send(ctx, "Chat response ready", "", map[string]interface{}{"session_id": sessionID}, "")
	logger.InfoX(moduleName, "offline push for session %s: sent=%d failed=%d", sessionID, summary.Sent, summary.Failed)
}

// cleanupSession runs once when a session's processing task exits for
// any reason: it resolves any outstanding AskUserQuestion future as
// cancelled, disconnects whichever client is still attached, and
// unregisters the session if it has not already been replaced under its
// current key (rekey's collision path reuses this same cleanup via
// terminateSession, so the registry removal must be conditional).
func (m *Manager) cleanupSession(s *Session) {
	s.mu.Lock()
	p := s.pendingPrompt
	s.pendingPrompt = nil
	transport := s.transport
	s.transport = nil
	s.connectedClientID = ""
	sessionID := s.sessionID
	s.mu.Unlock()

	if p != nil {
		select {
		case p.resultCh <- askUserResult{cancelled: true}:
		default:
		}
	}
	if transport != nil {
		transport.Disconnect()
	}

	m.mu.Lock()
	if cur, ok := m.sessions[sessionID]; ok && cur == s {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	close(s.done)
}
