package session

import "github.com/prime-system/prime-agent/internal/primeagent/domain/event"

// Attach implements §4.5.5 attach: it preempts any previously attached
// client, snapshots and clears the buffer, and returns the events the new
// client must replay in order. The caller (the WebSocket handler) is
// expected to send connected + session_status, then replay the returned
// events, then call FinishReplay.
func (m *Manager) Attach(s *Session, clientID string, transport Transport) []*event.Event {
	s.mu.Lock()
	previousTransport := s.transport
	previousClientID := s.connectedClientID

	s.connectedClientID = clientID
	s.transport = transport
	s.replayInProgress = true

	raw := s.buffer.SnapshotAndClear()
	buffered := make([]*event.Event, 0, len(raw)+1)
	haveTerminal := false
	for _, r := range raw {
		ev := r.(*event.Event)
		buffered = append(buffered, ev)
		if ev.IsTerminal() {
			haveTerminal = true
		}
	}
	if !haveTerminal && s.lastTerminalEvent != nil &&
		(s.lastEventType == event.TypeComplete || s.lastEventType == event.TypeError) {
		buffered = append(buffered, s.lastTerminalEvent)
	}

	if s.pendingPrompt != nil {
		havePrompt := false
		for _, ev := range buffered {
			if ev.Type == event.TypeAskUserQuestion && ev.QuestionID == s.pendingPrompt.questionID {
				havePrompt = true
				break
			}
		}
		if !havePrompt {
			buffered = append(buffered, event.AskUserQuestion(s.pendingPrompt.questionID, nil, int(AskUserTimeout.Seconds())))
		}
	}
	s.mu.Unlock()

	if previousTransport != nil && previousClientID != "" && previousClientID != clientID {
		_ = previousTransport.Send(event.SessionTaken())
		previousTransport.Disconnect()
	}

	return buffered
}

// FinishReplay drains any events buffered during replay and clears
// replay_in_progress once the buffer is observed empty with this client
// still attached. Implements the "hold the mutex only long enough to
// swap the buffer" pattern from the Design Notes.
func (m *Manager) FinishReplay(s *Session, clientID string, transport Transport) {
	for {
		s.mu.Lock()
		if s.connectedClientID != clientID {
			s.mu.Unlock()
			return
		}
		if s.buffer.Len() == 0 {
			s.replayInProgress = false
			s.mu.Unlock()
			return
		}
		raw := s.buffer.SnapshotAndClear()
		s.mu.Unlock()

		for _, r := range raw {
			_ = transport.Send(r.(*event.Event))
		}
	}
}

// Detach clears the attachment if clientID is the currently attached
// client. A detach never terminates the session.
func (m *Manager) Detach(s *Session, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectedClientID == clientID {
		s.connectedClientID = ""
		s.transport = nil
		s.replayInProgress = false
	}
}

// SendUserMessageOutcome is the result of SendUserMessage.
type SendUserMessageOutcome string

const (
	Accepted     SendUserMessageOutcome = "accepted"
	SessionTaken SendUserMessageOutcome = "session_taken"
)

// SendUserMessage enqueues text for processing. If callerClientID is
// supplied and is not the currently attached client, the caller is
// preempted instead: it receives session_taken and is disconnected, and
// the message is never enqueued.
func (m *Manager) SendUserMessage(s *Session, text, callerClientID string, callerTransport Transport) SendUserMessageOutcome {
	s.mu.Lock()
	attached := s.connectedClientID
	s.mu.Unlock()

	if callerClientID != "" && callerClientID != attached {
		if callerTransport != nil {
			_ = callerTransport.Send(event.SessionTaken())
			callerTransport.Disconnect()
		}
		return SessionTaken
	}

	s.enqueue(text)
	return Accepted
}
