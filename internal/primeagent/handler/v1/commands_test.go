package v1

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/command"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
	"github.com/prime-system/prime-agent/internal/primeagent/service/commandexec"
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

func TestCommandHandler_TriggerUnknownCommand(t *testing.T) {
	dir := t.TempDir()
	runs := command.NewManager(time.Hour, 200)
	r := runner.New(&fakeSDK{stream: &fakeStream{}})
	x := commandexec.NewExecutor(filepath.Join(dir, ".claude", "commands"), runs, r, nil, nil)
	h := NewCommandHandler(x, runs)

	g := gin.New()
	g.POST("/commands/:name/trigger", h.Trigger)

	req := httptest.NewRequest(http.MethodPost, "/commands/missing/trigger", nil)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommandHandler_TriggerThenPollRunStatus(t *testing.T) {
	dir := t.TempDir()
	commandsDir := filepath.Join(dir, ".claude", "commands")
	require.NoError(t, os.MkdirAll(commandsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(commandsDir, "daily-summary.md"), []byte("---\ndescription: test\n---\n\nSummarize."), 0o644))

	runs := command.NewManager(time.Hour, 200)
	fs := &fakeStream{messages: []*runner.Message{
		{Kind: runner.MessageResult, Result: &runner.ResultMessage{CostUSD: 0.02, DurationMs: 10}},
	}}
	r := runner.New(&fakeSDK{stream: fs})
	x := commandexec.NewExecutor(commandsDir, runs, r, nil, nil)
	h := NewCommandHandler(x, runs)

	g := gin.New()
	g.POST("/commands/:name/trigger", h.Trigger)
	g.GET("/commands/runs/:run_id", h.RunStatus)

	req := httptest.NewRequest(http.MethodPost, "/commands/daily-summary/trigger", nil)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var triggered triggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &triggered))
	require.NotEmpty(t, triggered.RunID)

	deadline := time.Now().Add(2 * time.Second)
	var status runStatusResponse
	for time.Now().Before(deadline) {
		statusReq := httptest.NewRequest(http.MethodGet, "/commands/runs/"+triggered.RunID, nil)
		statusRec := httptest.NewRecorder()
		g.ServeHTTP(statusRec, statusReq)
		require.Equal(t, http.StatusOK, statusRec.Code)
		require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
		if status.Status == "completed" || status.Status == "error" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, "completed", status.Status)
	require.NotNil(t, status.CostUSD)
	assert.InDelta(t, 0.02, *status.CostUSD, 0.0001)
}

func TestCommandHandler_RunStatusMissingRun(t *testing.T) {
	runs := command.NewManager(time.Hour, 200)
	h := NewCommandHandler(nil, runs)

	g := gin.New()
	g.GET("/commands/runs/:run_id", h.RunStatus)

	req := httptest.NewRequest(http.MethodGet, "/commands/runs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
