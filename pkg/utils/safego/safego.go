// Package safego launches goroutines that recover from panics instead of
// crashing the process, logging the panic with a stack trace. The
// long-lived background tasks in this repository (session processing
// loops, the periodic pull loop, command runs, capture sync) are started
// through Go rather than a bare `go`.
package safego

import (
	"context"
	"runtime/debug"

	"github.com/prime-system/prime-agent/pkg/logger"
)

// Go runs fn in a new goroutine, recovering any panic and logging it. ctx
// is accepted for symmetry with cancellable call sites but is not itself
// watched here; fn is expected to honor cancellation internally.
func Go(_ context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered in background task: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}
