package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/push"
	"github.com/prime-system/prime-agent/pkg/core"
	"github.com/prime-system/prime-agent/pkg/errorx"
)

// NotificationHandler handles POST /notifications/send.
type NotificationHandler struct {
	fanout *push.Fanout
}

func NewNotificationHandler(fanout *push.Fanout) *NotificationHandler {
	return &NotificationHandler{fanout: fanout}
}

// Send fans a notification out to every matching device binding. A relay
// 410 removes the binding; every other failure is reported per-device and
// does not stop the remaining deliveries.
func (h *NotificationHandler) Send(c *gin.Context) {
	var req notificationSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind notification send request"), nil)
		return
	}

	summary := h.fanout.Send(c.Request.Context(), req.Title, req.Body, req.Data, req.DeviceFilter)
	core.WriteResponse(c, nil, summary)
}
