// Package event defines the unified event model that flows from the Agent
// Runner through the Event Buffer, the Agent Session Manager, and the
// Command Run Manager out to the WebSocket and HTTP transports.
//
// A single closed type carries every variant rather than an untyped map;
// the Type field says which of the remaining fields are meaningful. This
// mirrors the teacher's entity.AgentEvent (internal/hivemind/.../entity)
// but widens the variant set to the session/command-run domain.
package event

import "time"

// Type is the closed set of event variants that can cross a session or
// command-run boundary.
type Type string

const (
	TypeSessionID         Type = "session_id"
	TypeText              Type = "text"
	TypeToolUse           Type = "tool_use"
	TypeThinking          Type = "thinking"
	TypeAskUserQuestion   Type = "ask_user_question"
	TypeAskUserTimeout    Type = "ask_user_timeout"
	TypeComplete          Type = "complete"
	TypeError             Type = "error"
	TypeConnected         Type = "connected"
	TypeSessionStatus     Type = "session_status"
	TypeSessionTaken      Type = "session_taken"
)

// Question is one entry of an AskUserQuestion prompt.
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// Event is the unified record appended to an Event Buffer and serialized at
// the transport boundary. Only the fields relevant to Type are populated;
// the rest are left at their zero value.
type Event struct {
	// ID is the event_id assigned by an Event Buffer. Command Run events
	// carry it on the wire (the run-polling handler writes it explicitly,
	// so id 0 is kept); session events do not (the buffer still assigns
	// one internally for FIFO bookkeeping).
	ID int64 `json:"event_id,omitempty"`

	Type Type `json:"type"`

	// session_id
	SessionID string `json:"sessionId,omitempty"`

	// connected
	ConnectionID string `json:"connectionId,omitempty"`

	// text
	Chunk string `json:"chunk,omitempty"`

	// tool_use
	ToolName  string                 `json:"name,omitempty"`
	ToolInput map[string]interface{} `json:"input,omitempty"`

	// thinking
	Content string `json:"content,omitempty"`

	// ask_user_question / ask_user_timeout
	QuestionID     string     `json:"question_id,omitempty"`
	Questions      []Question `json:"questions,omitempty"`
	TimeoutSeconds int        `json:"timeout_seconds,omitempty"`

	// complete / error
	Status      string   `json:"status,omitempty"`
	CostUSD     *float64 `json:"costUsd,omitempty"`
	DurationMs  *int64   `json:"durationMs,omitempty"`
	Error       string   `json:"error,omitempty"`
	IsPermanent bool     `json:"isPermanent,omitempty"`

	// session_status
	BufferedCount     int        `json:"buffered_count,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	LastActivity      *time.Time `json:"last_activity,omitempty"`
	LastEventType     Type       `json:"last_event_type,omitempty"`
	IsProcessing      bool       `json:"is_processing,omitempty"`
	WaitingForUser    bool       `json:"waiting_for_user,omitempty"`
	PendingQuestionID string     `json:"pending_question_id,omitempty"`
}

// IsTerminal reports whether this event ends a turn. The Agent Session
// Manager and Command Run Manager both key their terminal-status handling
// off this single predicate.
func (e *Event) IsTerminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}

// Text builds a text chunk event.
func Text(chunk string) *Event { return &Event{Type: TypeText, Chunk: chunk} }

// ToolUse builds a tool_use event.
func ToolUse(name string, input map[string]interface{}) *Event {
	return &Event{Type: TypeToolUse, ToolName: name, ToolInput: input}
}

// Thinking builds a thinking event.
func Thinking(content string) *Event { return &Event{Type: TypeThinking, Content: content} }

// SessionIDEvent builds a session_id rekey event.
func SessionIDEvent(id string) *Event { return &Event{Type: TypeSessionID, SessionID: id} }

// Complete builds a terminal complete event.
func Complete(status string, costUSD *float64, durationMs *int64) *Event {
	return &Event{Type: TypeComplete, Status: status, CostUSD: costUSD, DurationMs: durationMs}
}

// Err builds a terminal error event. Per the Runner contract (§4.3) every
// error event produced by the Runner is permanent.
func Err(message string, permanent bool) *Event {
	return &Event{Type: TypeError, Error: message, IsPermanent: permanent}
}

// AskUserQuestion builds a mid-turn prompt event.
func AskUserQuestion(questionID string, questions []Question, timeoutSeconds int) *Event {
	return &Event{
		Type:           TypeAskUserQuestion,
		QuestionID:     questionID,
		Questions:      questions,
		TimeoutSeconds: timeoutSeconds,
	}
}

// AskUserTimeout builds the event emitted when a mid-turn prompt expires.
func AskUserTimeout(questionID string) *Event {
	return &Event{Type: TypeAskUserTimeout, QuestionID: questionID, Error: "User response timeout"}
}

// SessionTaken builds the event sent to a client being preempted by a new
// attachment or a rejected send_user_message.
func SessionTaken() *Event { return &Event{Type: TypeSessionTaken} }

// Connected builds the event sent immediately after a WebSocket attaches.
func Connected(connectionID, sessionID string) *Event {
	return &Event{Type: TypeConnected, ConnectionID: connectionID, SessionID: sessionID}
}
