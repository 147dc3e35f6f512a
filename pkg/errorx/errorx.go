// Package errorx implements the registered-coder error convention used at
// every HTTP boundary: a numeric code, an HTTP status, a default message,
// and optional wrapped context, rendered as a stable {error, message,
// context} JSON envelope by pkg/core.
package errorx

import (
	"errors"
	"fmt"
	"sync"
)

// Coder maps an application error code to an HTTP status and default message.
type Coder interface {
	Code() int
	HTTPStatus() int
	String() string
	Reference() string
}

var (
	registryMu sync.RWMutex
	registry   = map[int]Coder{}
)

// MustRegister registers a Coder, panicking on a duplicate code — meant to
// be called from package init() only, so a collision fails fast at startup.
func MustRegister(coder Coder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[coder.Code()]; exists {
		panic(fmt.Sprintf("errorx: code %d already registered", coder.Code()))
	}
	registry[coder.Code()] = coder
}

// Lookup returns the Coder for a code, or a generic unknown coder.
func Lookup(code int) Coder {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if c, ok := registry[code]; ok {
		return c
	}
	return unknownCoder{code: code}
}

type unknownCoder struct{ code int }

func (u unknownCoder) Code() int         { return u.code }
func (u unknownCoder) HTTPStatus() int   { return 500 }
func (u unknownCoder) String() string    { return "internal error" }
func (u unknownCoder) Reference() string { return "" }

// Error is the concrete error value carried across a handler boundary. It
// pairs a Coder with wrapped context (printf-formatted, not translated)
// and an optional underlying cause.
type Error struct {
	coder   Coder
	context string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.coder.String(), e.context, e.cause)
	}
	if e.context != "" {
		return fmt.Sprintf("%s: %s", e.coder.String(), e.context)
	}
	return e.coder.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Coder returns the wrapped Coder.
func (e *Error) Coder() Coder { return e.coder }

// Context returns the formatted context string, which pkg/core includes
// as the context field of every API error envelope.
func (e *Error) Context() string { return e.context }

// New creates an Error for a given registered code with formatted context.
func New(code int, format string, args ...interface{}) *Error {
	return &Error{coder: Lookup(code), context: fmt.Sprintf(format, args...)}
}

// WithCode is New under the name handlers call at the boundary when there
// is no underlying error to wrap, only a registered code and a message.
func WithCode(code int, format string, args ...interface{}) *Error {
	return New(code, format, args...)
}

// WrapC wraps an existing error with a registered code and formatted
// context, preserving the original error as the cause.
func WrapC(cause error, code int, format string, args ...interface{}) *Error {
	return &Error{coder: Lookup(code), context: fmt.Sprintf(format, args...), cause: cause}
}

// FromError extracts an *Error if err (or something it wraps) is one.
func FromError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
