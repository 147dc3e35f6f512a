package session

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/push"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
)

// fakeStream yields a fixed, optionally tool-using, message sequence.
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

type fakeSDK struct {
	build func(opts runner.Options) *fakeStream
}

func (f *fakeSDK) Stream(ctx context.Context, prompt string, opts runner.Options) (runner.MessageStream, error) {
	return f.build(opts), nil
}

// fakeTransport records every event it is sent and whether it was
// disconnected.
type fakeTransport struct {
	mu         sync.Mutex
	sent       []*event.Event
	disconnect bool
}

func (t *fakeTransport) Send(ev *event.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, ev)
	return nil
}
func (t *fakeTransport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnect = true
}
func (t *fakeTransport) snapshot() []*event.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*event.Event, len(t.sent))
	copy(out, t.sent)
	return out
}

func newTestManager(build func(opts runner.Options) *fakeStream) *Manager {
	sdk := &fakeSDK{build: build}
	r := runner.New(sdk)
	reg := push.NewRegistry("")
	fanout := push.NewFanout(reg, nil)
	return NewManager(r, fanout)
}

func waitForTerminal(t *testing.T, tr *fakeTransport) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, ev := range tr.snapshot() {
			if ev.IsTerminal() {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManager_GetOrCreateRunsTurnAndRekeysOnSessionID(t *testing.T) {
	m := newTestManager(func(opts runner.Options) *fakeStream {
		return &fakeStream{messages: []*runner.Message{
			{Kind: runner.MessageSystemInit, SystemInit: &runner.SystemInitMessage{SessionID: "sdk-assigned-1"}},
			{Kind: runner.MessageAssistant, Assistant: &runner.AssistantMessage{Blocks: []runner.Block{{Kind: runner.BlockText, Text: "hi"}}}},
			{Kind: runner.MessageResult, Result: &runner.ResultMessage{SessionID: "sdk-assigned-1"}},
		}}
	})

	s := m.GetOrCreate(context.Background(), "")
	tr := &fakeTransport{}
	m.Attach(s, "client-1", tr)
	m.FinishReplay(s, "client-1", tr)

	outcome := m.SendUserMessage(s, "hello", "client-1", tr)
	assert.Equal(t, Accepted, outcome)

	waitForTerminal(t, tr)

	sent := tr.snapshot()
	var sawSessionID, sawText, sawComplete bool
	for _, ev := range sent {
		switch ev.Type {
		case event.TypeSessionID:
			sawSessionID = true
			assert.Equal(t, "sdk-assigned-1", ev.SessionID)
		case event.TypeText:
			sawText = true
		case event.TypeComplete:
			sawComplete = true
		}
	}
	assert.True(t, sawSessionID)
	assert.True(t, sawText)
	assert.True(t, sawComplete)

	_, ok := m.Get("sdk-assigned-1")
	assert.True(t, ok)

	m.Terminate("sdk-assigned-1")
}

func TestManager_SendUserMessageFromNonAttachedClientIsPreempted(t *testing.T) {
	m := newTestManager(func(opts runner.Options) *fakeStream {
		return &fakeStream{messages: []*runner.Message{
			{Kind: runner.MessageResult, Result: &runner.ResultMessage{}},
		}}
	})

	s := m.GetOrCreate(context.Background(), "")
	attached := &fakeTransport{}
	m.Attach(s, "client-1", attached)
	m.FinishReplay(s, "client-1", attached)

	intruder := &fakeTransport{}
	outcome := m.SendUserMessage(s, "hello", "client-2", intruder)

	assert.Equal(t, SessionTaken, outcome)
	assert.True(t, intruder.disconnect)
	require.Len(t, intruder.sent, 1)
	assert.Equal(t, event.TypeSessionTaken, intruder.sent[0].Type)

	m.Terminate(s.SessionID())
}

func TestManager_AttachPreemptsPreviousClient(t *testing.T) {
	m := newTestManager(func(opts runner.Options) *fakeStream { return &fakeStream{} })

	s := m.GetOrCreate(context.Background(), "")
	first := &fakeTransport{}
	m.Attach(s, "client-1", first)
	m.FinishReplay(s, "client-1", first)

	second := &fakeTransport{}
	m.Attach(s, "client-2", second)

	assert.True(t, first.disconnect)
	require.Len(t, first.sent, 1)
	assert.Equal(t, event.TypeSessionTaken, first.sent[0].Type)

	m.Terminate(s.SessionID())
}

func TestManager_AskUserQuestionRoundTrip(t *testing.T) {
	gate := make(chan runner.PermissionDecision, 1)
	m := newTestManager(func(opts runner.Options) *fakeStream {
		go func() {
			decision, err := opts.PermissionCallback(context.Background(), "AskUserQuestion",
				map[string]interface{}{"questions": []interface{}{map[string]interface{}{"question": "Proceed?", "options": []interface{}{"yes", "no"}}}}, nil)
			_ = err
			gate <- decision
		}()
		return &fakeStream{messages: []*runner.Message{
			{Kind: runner.MessageResult, Result: &runner.ResultMessage{}},
		}}
	})

	s := m.GetOrCreate(context.Background(), "")
	tr := &fakeTransport{}
	m.Attach(s, "client-1", tr)
	m.FinishReplay(s, "client-1", tr)

	m.SendUserMessage(s, "go", "client-1", tr)

	require.Eventually(t, func() bool {
		for _, ev := range tr.snapshot() {
			if ev.Type == event.TypeAskUserQuestion {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	var questionID string
	for _, ev := range tr.snapshot() {
		if ev.Type == event.TypeAskUserQuestion {
			questionID = ev.QuestionID
		}
	}
	require.NotEmpty(t, questionID)

	outcome := m.SubmitAskUserResponse(s, questionID, map[string]interface{}{"answer": "yes"}, false, "client-1", tr)
	assert.Equal(t, SubmitAccepted, outcome)

	select {
	case decision := <-gate:
		assert.True(t, decision.Allowed)
	case <-time.After(2 * time.Second):
		t.Fatal("permission callback never returned")
	}

	m.Terminate(s.SessionID())
}

func TestManager_SubmitAskUserResponseWithNoPendingQuestionIsInvalid(t *testing.T) {
	m := newTestManager(func(opts runner.Options) *fakeStream { return &fakeStream{} })
	s := m.GetOrCreate(context.Background(), "")

	outcome := m.SubmitAskUserResponse(s, "not-pending", nil, false, "", nil)
	assert.Equal(t, SubmitInvalidNoQuestion, outcome)

	m.Terminate(s.SessionID())
}
