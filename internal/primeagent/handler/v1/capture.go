package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/capture"
	"github.com/prime-system/prime-agent/pkg/core"
	"github.com/prime-system/prime-agent/pkg/errorx"
)

// CaptureHandler handles POST /capture.
type CaptureHandler struct {
	ingestor *capture.Ingestor
}

func NewCaptureHandler(ingestor *capture.Ingestor) *CaptureHandler {
	return &CaptureHandler{ingestor: ingestor}
}

// Create ingests a single capture and returns immediately; the vault sync
// it triggers runs in the background.
func (h *CaptureHandler) Create(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind capture request"), nil)
		return
	}

	path, err := h.ingestor.Ingest(c.Request.Context(), capture.Request{
		Source:  req.Source,
		Input:   req.Input,
		Text:    req.Text,
		Context: req.Context,
	})
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrCaptureWrite, "ingest capture from %q", req.Source), nil)
		return
	}

	core.WriteResponse(c, nil, gin.H{"path": path})
}
