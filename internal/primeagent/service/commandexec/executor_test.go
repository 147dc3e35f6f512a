package commandexec

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/command"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
)

type fakeStream struct {
	messages []*runner.Message
	i        int
}

func (f *fakeStream) Next(ctx context.Context) (*runner.Message, error) {
	if f.i >= len(f.messages) {
		return nil, io.EOF
	}
	m := f.messages[f.i]
	f.i++
	return m, nil
}

func (f *fakeStream) Close() {}

type fakeSDK struct{ stream *fakeStream }

func (f *fakeSDK) Stream(ctx context.Context, prompt string, opts runner.Options) (runner.MessageStream, error) {
	return f.stream, nil
}

func writeCommandFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".md"), []byte(content), 0o644))
}

func waitForTerminal(t *testing.T, runs *command.Manager, runID string) command.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := runs.Get(runID, -1)
		require.True(t, ok)
		if snap.Status == command.StatusCompleted || snap.Status == command.StatusError {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run never reached a terminal status")
	return command.Snapshot{}
}

func TestExecutor_TriggerUnknownCommandReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	runs := command.NewManager(time.Hour, 200)
	r := runner.New(&fakeSDK{stream: &fakeStream{}})

	x := NewExecutor(filepath.Join(dir, ".claude", "commands"), runs, r, nil, nil)
	_, err := x.Trigger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestExecutor_TriggerRunsCommandToCompletion(t *testing.T) {
	dir := t.TempDir()
	commandsDir := filepath.Join(dir, ".claude", "commands")
	writeCommandFile(t, commandsDir, "daily-summary", "---\ndescription: test\n---\n\nSummarize today.")

	runs := command.NewManager(time.Hour, 200)
	cost := 0.01
	fs := &fakeStream{messages: []*runner.Message{
		{Kind: runner.MessageAssistant, Assistant: &runner.AssistantMessage{Blocks: []runner.Block{
			{Kind: runner.BlockText, Text: "done"},
		}}},
		{Kind: runner.MessageResult, Result: &runner.ResultMessage{CostUSD: cost, DurationMs: 50}},
	}}
	r := runner.New(&fakeSDK{stream: fs})

	x := NewExecutor(commandsDir, runs, r, nil, nil)
	runID, err := x.Trigger(context.Background(), "daily-summary")
	require.NoError(t, err)

	snap := waitForTerminal(t, runs, runID)
	assert.Equal(t, command.StatusCompleted, snap.Status)
	require.NotNil(t, snap.CostUSD)
	assert.InDelta(t, cost, *snap.CostUSD, 0.0001)
}
