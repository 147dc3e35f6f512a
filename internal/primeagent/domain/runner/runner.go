package runner

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/safego"
)

const moduleName = "runner"

// TitleMaxTurns bounds the internal SDK turns allowed for a title
// generation invocation.
const TitleMaxTurns = 1

// TitleTimeout bounds the wall clock for a title generation invocation.
const TitleTimeout = 20 * time.Second

// TitleMaxLen is the longest a generated title may be before truncation.
const TitleMaxLen = 80

// Runner is the single-prompt executor described in §4.3. It drives an
// SDK collaborator and translates its message stream into the domain
// event model, using an eino schema.Pipe as the internal sink-to-stream
// bridge the same way the teacher's AgentRunner does: a goroutine writes
// events to the pipe's StreamWriter, the caller reads them back off the
// paired StreamReader.
type Runner struct {
	sdk SDK
}

func New(sdk SDK) *Runner {
	return &Runner{sdk: sdk}
}

// Run executes prompt and returns a stream of domain events. The stream
// always ends with exactly one terminal event (complete or error); the
// Runner never emits after the terminal event. Cancelling ctx propagates
// to the underlying SDK stream; the Runner still attempts to emit a
// terminal event to the returned stream unless the caller has already
// stopped reading it.
func (r *Runner) Run(ctx context.Context, prompt string, opts Options) *schema.StreamReader[*event.Event] {
	sr, sw := schema.Pipe[*event.Event](20)

	safego.Go(ctx, func() {
		defer sw.Close()
		r.drive(ctx, prompt, opts, sw)
	})

	return sr
}

func (r *Runner) drive(ctx context.Context, prompt string, opts Options, sw *schema.StreamWriter[*event.Event]) {
	stream, err := r.sdk.Stream(ctx, prompt, opts)
	if err != nil {
		sw.Send(event.Err(err.Error(), true), nil)
		return
	}
	defer stream.Close()

	sawSessionID := false
	for {
		msg, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			// The SDK closed its stream without a terminal result
			// message; this is itself an error condition per the
			// Runner contract (every invocation ends in a terminal
			// event).
			sw.Send(event.Err("SDK stream ended without a result message", true), nil)
			return
		}
		if err != nil {
			logger.ErrorX(moduleName, "sdk stream error: %v", err)
			sw.Send(event.Err(err.Error(), true), nil)
			return
		}

		switch msg.Kind {
		case MessageSystemInit:
			if msg.SystemInit != nil && msg.SystemInit.SessionID != "" && !sawSessionID {
				sw.Send(event.SessionIDEvent(msg.SystemInit.SessionID), nil)
				sawSessionID = true
			}
		case MessageAssistant:
			if msg.Assistant == nil {
				continue
			}
			for _, block := range msg.Assistant.Blocks {
				switch block.Kind {
				case BlockText:
					sw.Send(event.Text(block.Text), nil)
				case BlockToolUse:
					if block.ToolUse != nil {
						sw.Send(event.ToolUse(block.ToolUse.Name, block.ToolUse.Input), nil)
					}
				case BlockThinking:
					sw.Send(event.Thinking(block.Thinking), nil)
				}
			}
		case MessageResult:
			if msg.Result == nil {
				sw.Send(event.Err("result message missing payload", true), nil)
				return
			}
			if msg.Result.SessionID != "" && !sawSessionID {
				sw.Send(event.SessionIDEvent(msg.Result.SessionID), nil)
				sawSessionID = true
			}
			if msg.Result.IsError {
				sw.Send(event.Err(msg.Result.ErrorText, true), nil)
				return
			}
			cost := msg.Result.CostUSD
			duration := msg.Result.DurationMs
			sw.Send(event.Complete("success", &cost, &duration), nil)
			return
		}
	}
}

// GenerateTitle is a specialized Runner invocation: empty tool allow-list,
// a single turn, and a 20-second wall clock. It extracts a single-line,
// trimmed, <=80-character title from the assistant text and returns nil
// on any failure rather than propagating an error — title generation
// never blocks the caller's success path.
func (r *Runner) GenerateTitle(ctx context.Context, prompt string) *string {
	ctx, cancel := context.WithTimeout(ctx, TitleTimeout)
	defer cancel()

	stream, err := r.sdk.Stream(ctx, prompt, Options{ToolAllowList: []string{}, MaxTurns: TitleMaxTurns})
	if err != nil {
		logger.WarnX(moduleName, "title generation failed to start: %v", err)
		return nil
	}
	defer stream.Close()

	var text strings.Builder
	for {
		msg, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.WarnX(moduleName, "title generation stream error: %v", err)
			return nil
		}
		if msg.Kind == MessageAssistant && msg.Assistant != nil {
			for _, block := range msg.Assistant.Blocks {
				if block.Kind == BlockText {
					text.WriteString(block.Text)
				}
			}
		}
		if msg.Kind == MessageResult && msg.Result != nil && msg.Result.IsError {
			return nil
		}
	}

	title := firstLine(text.String())
	if title == "" {
		return nil
	}
	return &title
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > TitleMaxLen {
		s = strings.TrimSpace(s[:TitleMaxLen])
	}
	return s
}
