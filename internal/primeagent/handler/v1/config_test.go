package v1

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-system/prime-agent/internal/primeagent/config"
)

func TestConfigHandler_ReloadSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  bind-port: 9000\n"), 0o644))

	store, err := config.NewStore(path)
	require.NoError(t, err)
	h := NewConfigHandler(store)

	g := gin.New()
	g.POST("/config/reload", h.Reload)

	req := httptest.NewRequest(http.MethodPost, "/config/reload", nil)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reloaded":true`)
}

func TestConfigHandler_ReloadFailureKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  bind-port: 9000\n"), 0o644))

	store, err := config.NewStore(path)
	require.NoError(t, err)
	h := NewConfigHandler(store)

	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	g := gin.New()
	g.POST("/config/reload", h.Reload)

	req := httptest.NewRequest(http.MethodPost, "/config/reload", nil)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 9000, store.Current().Server.BindPort)
}
