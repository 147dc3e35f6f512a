package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/config"
	"github.com/prime-system/prime-agent/pkg/core"
	"github.com/prime-system/prime-agent/pkg/errorx"
)

// ConfigHandler handles POST /config/reload.
type ConfigHandler struct {
	store *config.Store
}

func NewConfigHandler(store *config.Store) *ConfigHandler {
	return &ConfigHandler{store: store}
}

// Reload forces an immediate re-read of the configuration file. A parse
// failure leaves the previous in-memory snapshot untouched.
func (h *ConfigHandler) Reload(c *gin.Context) {
	changed, err := h.store.Reload()
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrConfigReload, "reload configuration"), nil)
		return
	}
	core.WriteResponse(c, nil, reloadResponse{Reloaded: true, ChangedSections: changed})
}
