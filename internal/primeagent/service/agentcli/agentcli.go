// Package agentcli is the one concrete runner.SDK this binary ships:
// it shells out to the real `claude` CLI in streaming JSON mode, the
// same external process the original's claude_agent_sdk wraps
// internally (original_source/app/services/agent.py). The SDK's
// implementation is explicitly out of scope (spec §1 Non-goals); this
// adapter exists only so cmd/primeagentd has something real to run
// against, not as a full port of the original's budget/env/model
// plumbing.
package agentcli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/json"
)

const moduleName = "agentcli"

// SDK drives the `claude` binary directly in the vault's working tree.
// Tool permission prompts are not bridged here: command and capture
// prompts run under --permission-mode acceptEdits, the same
// auto-approve-file-ops mode the original uses for its own unattended
// command runs, so opts.PermissionCallback is never invoked by this
// adapter.
type SDK struct {
	binary    string
	vaultPath string
}

func New(binary, vaultPath string) *SDK {
	if binary == "" {
		binary = "claude"
	}
	return &SDK{binary: binary, vaultPath: vaultPath}
}

// Stream launches one `claude` invocation and returns a MessageStream
// reading its stream-json stdout line by line.
func (s *SDK) Stream(ctx context.Context, prompt string, opts runner.Options) (runner.MessageStream, error) {
	args := []string{"-p", prompt, "--output-format", "stream-json", "--verbose", "--permission-mode", "acceptEdits"}
	if opts.SessionID != "" {
		args = append(args, "--resume", opts.SessionID)
	}
	if opts.MaxTurns > 0 {
		args = append(args, "--max-turns", fmt.Sprint(opts.MaxTurns))
	}
	if opts.ToolAllowList != nil {
		args = append(args, "--allowed-tools", joinComma(opts.ToolAllowList))
	}

	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Dir = s.vaultPath

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agentcli: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("agentcli: start %s: %w", s.binary, err)
	}

	st := &stream{cmd: cmd, scanner: bufio.NewScanner(stdout)}
	st.scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return st, nil
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}

type stream struct {
	cmd     *exec.Cmd
	scanner *bufio.Scanner
}

// rawLine mirrors the CLI's stream-json envelope closely enough to
// route each line to the right runner.Message variant; fields this
// adapter doesn't use are left unparsed.
type rawLine struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Data    struct {
		SessionID string `json:"session_id"`
	} `json:"data"`
	SessionID    string `json:"session_id"`
	Message      struct {
		Content []rawBlock `json:"content"`
	} `json:"message"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	DurationMs   int64   `json:"duration_ms"`
	IsError      bool    `json:"is_error"`
	Result       string  `json:"result"`
}

type rawBlock struct {
	Type     string                 `json:"type"`
	Text     string                 `json:"text"`
	Thinking string                 `json:"thinking"`
	Name     string                 `json:"name"`
	Input    map[string]interface{} `json:"input"`
}

func (s *stream) Next(ctx context.Context) (*runner.Message, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw rawLine
		if err := json.Unmarshal(line, &raw); err != nil {
			logger.WarnX(moduleName, "skipping malformed stream-json line: %v", err)
			continue
		}

		if msg := toMessage(raw); msg != nil {
			return msg, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("agentcli: read stdout: %w", err)
	}
	return nil, io.EOF
}

func toMessage(raw rawLine) *runner.Message {
	switch raw.Type {
	case "system":
		if raw.Subtype != "init" {
			return nil
		}
		return &runner.Message{Kind: runner.MessageSystemInit, SystemInit: &runner.SystemInitMessage{SessionID: raw.Data.SessionID}}
	case "assistant":
		blocks := make([]runner.Block, 0, len(raw.Message.Content))
		for _, b := range raw.Message.Content {
			switch b.Type {
			case "text":
				blocks = append(blocks, runner.Block{Kind: runner.BlockText, Text: b.Text})
			case "thinking":
				blocks = append(blocks, runner.Block{Kind: runner.BlockThinking, Thinking: b.Thinking})
			case "tool_use":
				blocks = append(blocks, runner.Block{Kind: runner.BlockToolUse, ToolUse: &runner.ToolUseBlock{Name: b.Name, Input: b.Input}})
			}
		}
		return &runner.Message{Kind: runner.MessageAssistant, Assistant: &runner.AssistantMessage{Blocks: blocks}}
	case "result":
		return &runner.Message{Kind: runner.MessageResult, Result: &runner.ResultMessage{
			SessionID:  raw.SessionID,
			CostUSD:    raw.TotalCostUSD,
			DurationMs: raw.DurationMs,
			IsError:    raw.IsError,
			ErrorText:  raw.Result,
		}}
	default:
		return nil
	}
}

func (s *stream) Close() {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
}
