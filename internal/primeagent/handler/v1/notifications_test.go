package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/push"
)

func TestNotificationHandler_SendFansOutToRegisteredDevices(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer relay.Close()

	reg := push.NewRegistry(t.TempDir())
	require.NoError(t, reg.Register(push.Device{InstallationID: "dev1", DeviceType: "ios", PushURL: relay.URL}))
	fanout := push.NewFanout(reg, nil)
	h := NewNotificationHandler(fanout)

	g := gin.New()
	g.POST("/notifications/send", h.Send)

	body, _ := json.Marshal(map[string]string{"title": "hi", "body": "there"})
	req := httptest.NewRequest(http.MethodPost, "/notifications/send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sent":1`)
}

func TestNotificationHandler_SendRejectsMissingBody(t *testing.T) {
	reg := push.NewRegistry(t.TempDir())
	fanout := push.NewFanout(reg, nil)
	h := NewNotificationHandler(fanout)

	g := gin.New()
	g.POST("/notifications/send", h.Send)

	body, _ := json.Marshal(map[string]string{"title": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/notifications/send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
