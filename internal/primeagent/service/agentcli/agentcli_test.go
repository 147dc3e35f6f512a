package agentcli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
)

func TestToMessage_SystemInit(t *testing.T) {
	raw := rawLine{Type: "system", Subtype: "init"}
	raw.Data.SessionID = "sess-1"

	msg := toMessage(raw)
	require.NotNil(t, msg)
	assert.Equal(t, runner.MessageSystemInit, msg.Kind)
	assert.Equal(t, "sess-1", msg.SystemInit.SessionID)
}

func TestToMessage_SystemNonInitIgnored(t *testing.T) {
	raw := rawLine{Type: "system", Subtype: "other"}
	assert.Nil(t, toMessage(raw))
}

func TestToMessage_AssistantBlocks(t *testing.T) {
	raw := rawLine{Type: "assistant"}
	raw.Message.Content = []rawBlock{
		{Type: "text", Text: "hello"},
		{Type: "thinking", Thinking: "pondering"},
		{Type: "tool_use", Name: "Read", Input: map[string]interface{}{"path": "a.txt"}},
		{Type: "unknown_block_type"},
	}

	msg := toMessage(raw)
	require.NotNil(t, msg)
	require.Equal(t, runner.MessageAssistant, msg.Kind)
	require.Len(t, msg.Assistant.Blocks, 3)
	assert.Equal(t, runner.BlockText, msg.Assistant.Blocks[0].Kind)
	assert.Equal(t, "hello", msg.Assistant.Blocks[0].Text)
	assert.Equal(t, runner.BlockThinking, msg.Assistant.Blocks[1].Kind)
	assert.Equal(t, "pondering", msg.Assistant.Blocks[1].Thinking)
	assert.Equal(t, runner.BlockToolUse, msg.Assistant.Blocks[2].Kind)
	assert.Equal(t, "Read", msg.Assistant.Blocks[2].ToolUse.Name)
	assert.Equal(t, "a.txt", msg.Assistant.Blocks[2].ToolUse.Input["path"])
}

func TestToMessage_Result(t *testing.T) {
	raw := rawLine{Type: "result", SessionID: "sess-1", TotalCostUSD: 0.03, DurationMs: 1200, IsError: false, Result: "done"}

	msg := toMessage(raw)
	require.NotNil(t, msg)
	assert.Equal(t, runner.MessageResult, msg.Kind)
	assert.Equal(t, "sess-1", msg.Result.SessionID)
	assert.InDelta(t, 0.03, msg.Result.CostUSD, 0.0001)
	assert.EqualValues(t, 1200, msg.Result.DurationMs)
	assert.Equal(t, "done", msg.Result.ErrorText)
}

func TestToMessage_UnknownTypeIgnored(t *testing.T) {
	raw := rawLine{Type: "stream_event"}
	assert.Nil(t, toMessage(raw))
}

func TestNew_DefaultsBinaryToClaude(t *testing.T) {
	sdk := New("", "/tmp/vault")
	assert.Equal(t, "claude", sdk.binary)
	assert.Equal(t, "/tmp/vault", sdk.vaultPath)
}

func TestJoinComma(t *testing.T) {
	assert.Equal(t, "", joinComma(nil))
	assert.Equal(t, "Read", joinComma([]string{"Read"}))
	assert.Equal(t, "Read,Write", joinComma([]string{"Read", "Write"}))
}
