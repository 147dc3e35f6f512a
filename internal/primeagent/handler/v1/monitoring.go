package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/command"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/session"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/vault"
	"github.com/prime-system/prime-agent/pkg/core"
)

// MonitoringHandler handles GET /monitoring/background-tasks/status.
type MonitoringHandler struct {
	runs        *command.Manager
	sessions    *session.Manager
	coordinator *vault.Coordinator
}

func NewMonitoringHandler(runs *command.Manager, sessions *session.Manager, coordinator *vault.Coordinator) *MonitoringHandler {
	return &MonitoringHandler{runs: runs, sessions: sessions, coordinator: coordinator}
}

// Status reports a point-in-time snapshot of in-memory state: active
// command runs, registered sessions (attached or not), whether the vault
// mutex is currently held, and whether the vault mirror is enabled.
func (h *MonitoringHandler) Status(c *gin.Context) {
	core.WriteResponse(c, nil, backgroundTasksResponse{
		ActiveCommandRuns: h.runs.ActiveCount(),
		ActiveSessions:    h.sessions.Count(),
		VaultMutexHeld:    h.coordinator.MutexHeld(),
		MirrorEnabled:     h.coordinator.Enabled(),
	})
}
