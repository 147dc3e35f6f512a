package v1

import (
	"net/http"

	"github.com/prime-system/prime-agent/pkg/errorx"
)

// Handler error codes. Code format: 10XXYY
//   - 10: module prefix (primeagentd HTTP handler)
//   - XX: resource group (00=common, 01=capture, 02=command, 03=config,
//     04=devices, 05=notifications, 06=monitoring)
//   - YY: sequential error number within the group, starting at 01

const (
	// Common request errors (100xxx).
	ErrBind       = 100001
	ErrValidation = 100002

	// Capture errors (1001xx).
	ErrCaptureWrite = 100101

	// Command errors (1002xx).
	ErrCommandNotFound = 100201
	ErrRunNotFound     = 100202

	// Config errors (1003xx).
	ErrConfigReload = 100301

	// Device errors (1004xx).
	ErrDeviceRegister = 100401

	// Notification errors (1005xx).
	ErrNotificationSend = 100501
)

func init() {
	errorx.MustRegister(newCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))
	errorx.MustRegister(newCoder(ErrValidation, http.StatusBadRequest, "Request validation failed"))

	errorx.MustRegister(newCoder(ErrCaptureWrite, http.StatusInternalServerError, "Failed to write capture"))

	errorx.MustRegister(newCoder(ErrCommandNotFound, http.StatusNotFound, "Command not found"))
	errorx.MustRegister(newCoder(ErrRunNotFound, http.StatusNotFound, "Run not found"))

	errorx.MustRegister(newCoder(ErrConfigReload, http.StatusInternalServerError, "Config reload failed"))

	errorx.MustRegister(newCoder(ErrDeviceRegister, http.StatusInternalServerError, "Failed to register device"))

	errorx.MustRegister(newCoder(ErrNotificationSend, http.StatusInternalServerError, "Failed to send notification"))
}

type coder struct {
	code int
	http int
	msg  string
}

func newCoder(code, httpStatus int, msg string) *coder {
	return &coder{code: code, http: httpStatus, msg: msg}
}

func (c *coder) Code() int         { return c.code }
func (c *coder) HTTPStatus() int   { return c.http }
func (c *coder) String() string    { return c.msg }
func (c *coder) Reference() string { return "" }
