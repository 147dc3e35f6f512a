// Package core holds small gin-facing helpers shared by every v1 handler.
package core

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/pkg/errorx"
)

// ErrorResponse is the stable JSON shape returned for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// WriteResponse writes either the error envelope (if err != nil) or data
// as-is, choosing the HTTP status from the registered Coder when err is an
// *errorx.Error.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	if xerr, ok := errorx.FromError(err); ok {
		coder := xerr.Coder()
		c.JSON(coder.HTTPStatus(), ErrorResponse{
			Error:   coder.String(),
			Message: xerr.Error(),
			Context: xerr.Context(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal error",
		Message: err.Error(),
	})
}
