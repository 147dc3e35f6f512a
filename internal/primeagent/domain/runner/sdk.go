// Package runner adapts an external Agent SDK collaborator into the typed
// event stream the rest of this system consumes. The SDK itself (whatever
// vendor or local model backs a turn) is outside this system's scope
// (spec Non-goals); this package only defines the narrow interface the
// Runner expects from it and translates its output into domain events.
package runner

import "context"

// MessageKind is the closed set of top-level messages an SDK stream can
// produce for a single prompt.
type MessageKind string

const (
	MessageSystemInit MessageKind = "system_init"
	MessageAssistant  MessageKind = "assistant"
	MessageResult     MessageKind = "result"
)

// Message is one item of the lazy, finite sequence the SDK yields for a
// single prompt invocation.
type Message struct {
	Kind       MessageKind
	SystemInit *SystemInitMessage
	Assistant  *AssistantMessage
	Result     *ResultMessage
}

type SystemInitMessage struct {
	SessionID string
}

type AssistantMessage struct {
	Blocks []Block
}

type ResultMessage struct {
	SessionID  string
	CostUSD    float64
	DurationMs int64
	IsError    bool
	ErrorText  string
}

// BlockKind is the closed set of assistant content block variants.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockToolUse  BlockKind = "tool_use"
	BlockThinking BlockKind = "thinking"
)

type Block struct {
	Kind     BlockKind
	Text     string
	Thinking string
	ToolUse  *ToolUseBlock
}

type ToolUseBlock struct {
	Name  string
	Input map[string]interface{}
}

// PermissionDecision is the SDK permission callback's return value for a
// requested tool invocation.
type PermissionDecision struct {
	Allowed            bool
	UpdatedPermissions map[string]interface{}
	UpdatedInput       map[string]interface{}
	DenyMessage        string
	Interrupt          bool
}

// Allow builds an allow decision, optionally overriding permissions and
// the tool input the SDK will actually receive.
func Allow(updatedPermissions, updatedInput map[string]interface{}) PermissionDecision {
	return PermissionDecision{Allowed: true, UpdatedPermissions: updatedPermissions, UpdatedInput: updatedInput}
}

// Deny builds a deny decision.
func Deny(message string, interrupt bool) PermissionDecision {
	return PermissionDecision{Allowed: false, DenyMessage: message, Interrupt: interrupt}
}

// PermissionCallback is invoked by the SDK whenever it wants to use a
// named tool. toolName "AskUserQuestion" is bridged to the mid-turn user
// prompting flow (§4.5.7) by the session package; every other tool name
// takes the default allow path.
type PermissionCallback func(ctx context.Context, toolName string, input map[string]interface{}, suggestions map[string]interface{}) (PermissionDecision, error)

// Options parametrizes a single Stream call.
type Options struct {
	// SessionID resumes an existing SDK-side session when non-empty.
	SessionID string

	// PermissionCallback is consulted before any tool use the SDK wants
	// to perform.
	PermissionCallback PermissionCallback

	// ToolAllowList restricts which tools the SDK may invoke. An empty,
	// non-nil slice means no tools at all (used by title generation).
	ToolAllowList []string

	// MaxTurns bounds the number of internal SDK turns for this prompt
	// (title generation uses a tight budget).
	MaxTurns int
}

// SDK is the external collaborator the Runner drives. A concrete
// implementation talks to whatever agent backend is configured; nothing
// in this package or its callers assumes a particular vendor.
type SDK interface {
	// Stream executes prompt under opts and returns a lazy, finite
	// sequence of Messages. The returned MessageStream must eventually
	// be closed by the caller.
	Stream(ctx context.Context, prompt string, opts Options) (MessageStream, error)
}

// MessageStream is the minimal pull interface the Runner consumes. Next
// returns io.EOF (via the standard io.EOF sentinel) once the sequence is
// exhausted.
type MessageStream interface {
	Next(ctx context.Context) (*Message, error)
	Close()
}
