package session

import (
	"context"
	"strings"
	"time"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
)

// SubmitOutcome is the result of SubmitAskUserResponse.
type SubmitOutcome string

const (
	SubmitAccepted          SubmitOutcome = "accepted"
	SubmitIgnoredStale      SubmitOutcome = "ignored"
	SubmitInvalidNoQuestion SubmitOutcome = "invalid"
	SubmitInvalidShape      SubmitOutcome = "invalid"
	SubmitSessionTaken      SubmitOutcome = "session_taken"
)

// permissionCallback builds the runner.PermissionCallback bound to this
// session (§4.5.7): it surfaces an AskUserQuestion to the attached client
// and blocks the processing task until an answer arrives, the timeout
// elapses, or the session is torn down.
func (m *Manager) permissionCallback(s *Session) runner.PermissionCallback {
	return func(ctx context.Context, toolName string, input, suggestions map[string]interface{}) (runner.PermissionDecision, error) {
		if toolName != "AskUserQuestion" {
			return runner.Allow(suggestions, nil), nil
		}

		s.mu.Lock()
		if s.pendingPrompt != nil {
			s.mu.Unlock()
			return runner.Deny("another question is already pending", true), nil
		}

		questionID := newPendingID()
		resultCh := make(chan askUserResult, 1)
		s.pendingPrompt = &pendingPrompt{questionID: questionID, startedAt: time.Now(), resultCh: resultCh}
		s.mu.Unlock()

		questions := decodeQuestions(input)
		m.dispatch(s, event.AskUserQuestion(questionID, questions, int(AskUserTimeout.Seconds())))

		timer := time.NewTimer(AskUserTimeout)
		defer timer.Stop()

		select {
		case res := <-resultCh:
			s.mu.Lock()
			s.pendingPrompt = nil
			s.mu.Unlock()
			if res.cancelled {
				return runner.Deny("user cancelled", true), nil
			}
			updatedInput := make(map[string]interface{}, len(input)+1)
			for k, v := range input {
				updatedInput[k] = v
			}
			updatedInput["answers"] = normalizeAnswers(res.answers)
			return runner.Allow(nil, updatedInput), nil

		case <-timer.C:
			s.mu.Lock()
			s.pendingPrompt = nil
			s.mu.Unlock()
			m.dispatch(s, event.AskUserTimeout(questionID))
			return runner.Deny("User response timeout", true), nil

		case <-ctx.Done():
			s.mu.Lock()
			s.pendingPrompt = nil
			s.mu.Unlock()
			return runner.Deny("session terminated", true), ctx.Err()
		}
	}
}

// normalizeAnswers joins list-valued answers with ", " and passes scalar
// answers through unchanged, per §4.5.7 step 5.
func normalizeAnswers(answers map[string]interface{}) map[string]interface{} {
	normalized := make(map[string]interface{}, len(answers))
	for k, v := range answers {
		switch val := v.(type) {
		case []string:
			normalized[k] = strings.Join(val, ", ")
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				if str, ok := item.(string); ok {
					parts = append(parts, str)
				}
			}
			normalized[k] = strings.Join(parts, ", ")
		default:
			normalized[k] = v
		}
	}
	return normalized
}

// validAnswersShape reports whether every value in answers is a string or
// a list of strings, per §4.5.7's submit_ask_user_response validation.
func validAnswersShape(answers map[string]interface{}) bool {
	for _, v := range answers {
		switch val := v.(type) {
		case string:
		case []string:
		case []interface{}:
			for _, item := range val {
				if _, ok := item.(string); !ok {
					return false
				}
			}
		default:
			return false
		}
	}
	return true
}

func decodeQuestions(input map[string]interface{}) []event.Question {
	raw, ok := input["questions"].([]interface{})
	if !ok {
		return nil
	}
	questions := make([]event.Question, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		q := event.Question{}
		if v, ok := m["question"].(string); ok {
			q.Question = v
		}
		if opts, ok := m["options"].([]interface{}); ok {
			for _, o := range opts {
				if s, ok := o.(string); ok {
					q.Options = append(q.Options, s)
				}
			}
		}
		questions = append(questions, q)
	}
	return questions
}

// SubmitAskUserResponse delivers a user's answer to the session's pending
// prompt. Per §4.5.7: if callerClientID is supplied and is not the
// currently attached client, the caller is preempted (session_taken, then
// disconnected) and the answer is discarded. With no prompt pending (never
// asked, or already resolved or expired) the outcome is invalid. A
// questionID that does not match the pending prompt, or a prompt whose
// answer has already been delivered, is ignored rather than erroring,
// since it is expected to race against the timeout. answers is validated
// to be string- or string-list-valued before being accepted.
func (m *Manager) SubmitAskUserResponse(s *Session, questionID string, answers map[string]interface{}, cancelled bool, callerClientID string, callerTransport Transport) SubmitOutcome {
	s.mu.Lock()
	attached := s.connectedClientID
	p := s.pendingPrompt
	s.mu.Unlock()

	if callerClientID != "" && callerClientID != attached {
		if callerTransport != nil {
			_ = callerTransport.Send(event.SessionTaken())
			callerTransport.Disconnect()
		}
		return SubmitSessionTaken
	}

	if p == nil {
		return SubmitInvalidNoQuestion
	}
	if p.questionID != questionID {
		return SubmitIgnoredStale
	}
	if !cancelled && !validAnswersShape(answers) {
		return SubmitInvalidShape
	}

	select {
	case p.resultCh <- askUserResult{answers: answers, cancelled: cancelled}:
		return SubmitAccepted
	default:
		return SubmitIgnoredStale
	}
}
