package runner

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
)

type fakeStream struct {
	messages []*Message
	i        int
	closed   bool
}

func (f *fakeStream) Next(ctx context.Context) (*Message, error) {
	if f.i >= len(f.messages) {
		return nil, io.EOF
	}
	m := f.messages[f.i]
	f.i++
	return m, nil
}

func (f *fakeStream) Close() { f.closed = true }

type fakeSDK struct {
	stream *fakeStream
	err    error
}

func (f *fakeSDK) Stream(ctx context.Context, prompt string, opts Options) (MessageStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func TestRunner_TranslatesBlocksAndEmitsTerminalComplete(t *testing.T) {
	fs := &fakeStream{messages: []*Message{
		{Kind: MessageSystemInit, SystemInit: &SystemInitMessage{SessionID: "sess-1"}},
		{Kind: MessageAssistant, Assistant: &AssistantMessage{Blocks: []Block{
			{Kind: BlockText, Text: "hello"},
			{Kind: BlockToolUse, ToolUse: &ToolUseBlock{Name: "grep", Input: map[string]interface{}{"q": "x"}}},
			{Kind: BlockThinking, Thinking: "pondering"},
		}}},
		{Kind: MessageResult, Result: &ResultMessage{SessionID: "sess-1", CostUSD: 0.02, DurationMs: 200}},
	}}
	r := New(&fakeSDK{stream: fs})
	sr := r.Run(context.Background(), "hi", Options{})

	var events []*event.Event
	for {
		ev, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		events = append(events, ev)
	}

	require.Len(t, events, 5)
	assert.Equal(t, event.TypeSessionID, events[0].Type)
	assert.Equal(t, "sess-1", events[0].SessionID)
	assert.Equal(t, event.TypeText, events[1].Type)
	assert.Equal(t, "hello", events[1].Chunk)
	assert.Equal(t, event.TypeToolUse, events[2].Type)
	assert.Equal(t, "grep", events[2].ToolName)
	assert.Equal(t, event.TypeThinking, events[3].Type)
	last := events[4]
	assert.Equal(t, event.TypeComplete, last.Type)
	assert.True(t, last.IsTerminal())
	require.NotNil(t, last.CostUSD)
	assert.InDelta(t, 0.02, *last.CostUSD, 0.0001)

	assert.True(t, fs.closed)
}

func TestRunner_ResultIsErrorProducesPermanentTerminalError(t *testing.T) {
	fs := &fakeStream{messages: []*Message{
		{Kind: MessageResult, Result: &ResultMessage{IsError: true, ErrorText: "boom"}},
	}}
	r := New(&fakeSDK{stream: fs})
	sr := r.Run(context.Background(), "hi", Options{})

	ev, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, event.TypeError, ev.Type)
	assert.True(t, ev.IsPermanent)
	assert.Equal(t, "boom", ev.Error)

	_, err = sr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRunner_SDKStartFailureProducesPermanentTerminalError(t *testing.T) {
	r := New(&fakeSDK{err: errors.New("connection refused")})
	sr := r.Run(context.Background(), "hi", Options{})

	ev, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, event.TypeError, ev.Type)
	assert.True(t, ev.IsPermanent)
}

func TestRunner_GenerateTitleExtractsFirstLineTrimmed(t *testing.T) {
	fs := &fakeStream{messages: []*Message{
		{Kind: MessageAssistant, Assistant: &AssistantMessage{Blocks: []Block{
			{Kind: BlockText, Text: "  Fix the login bug  \nmore detail here"},
		}}},
	}}
	r := New(&fakeSDK{stream: fs})
	title := r.GenerateTitle(context.Background(), "summarize")
	require.NotNil(t, title)
	assert.Equal(t, "Fix the login bug", *title)
}

func TestRunner_GenerateTitleReturnsNilOnError(t *testing.T) {
	r := New(&fakeSDK{err: errors.New("down")})
	title := r.GenerateTitle(context.Background(), "summarize")
	assert.Nil(t, title)
}
