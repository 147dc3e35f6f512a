package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/push"
	"github.com/prime-system/prime-agent/pkg/core"
	"github.com/prime-system/prime-agent/pkg/errorx"
)

// DeviceHandler handles the device-binding registry endpoints.
type DeviceHandler struct {
	registry *push.Registry
}

func NewDeviceHandler(registry *push.Registry) *DeviceHandler {
	return &DeviceHandler{registry: registry}
}

// Register handles POST /devices/register, upserting a binding.
func (h *DeviceHandler) Register(c *gin.Context) {
	var req deviceRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind device register request"), nil)
		return
	}

	d := push.Device{
		InstallationID: req.InstallationID,
		DeviceType:     req.DeviceType,
		DeviceName:     req.DeviceName,
		PushURL:        req.PushURL,
	}
	if err := h.registry.Register(d); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrDeviceRegister, "register device %q", req.InstallationID), nil)
		return
	}

	core.WriteResponse(c, nil, gin.H{"installation_id": req.InstallationID, "registered": true})
}

// List handles GET /devices. push_url is never returned (spec §6).
func (h *DeviceHandler) List(c *gin.Context) {
	core.WriteResponse(c, nil, gin.H{"devices": h.registry.List()})
}
