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

	"github.com/prime-system/prime-agent/internal/primeagent/domain/capture"
)

func init() { gin.SetMode(gin.TestMode) }

func TestCaptureHandler_CreateWritesFile(t *testing.T) {
	ing := capture.NewIngestor(t.TempDir(), "inbox", nil, nil)
	h := NewCaptureHandler(ing)

	g := gin.New()
	g.POST("/capture", h.Create)

	body, _ := json.Marshal(map[string]string{"source": "iphone", "text": "buy milk"})
	req := httptest.NewRequest(http.MethodPost, "/capture", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "path")
}

func TestCaptureHandler_CreateRejectsMissingText(t *testing.T) {
	ing := capture.NewIngestor(t.TempDir(), "inbox", nil, nil)
	h := NewCaptureHandler(ing)

	g := gin.New()
	g.POST("/capture", h.Create)

	body, _ := json.Marshal(map[string]string{"source": "iphone"})
	req := httptest.NewRequest(http.MethodPost, "/capture", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
