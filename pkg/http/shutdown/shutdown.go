// Package shutdown coordinates orderly process teardown across several
// independent managers (OS signals, a future managed-platform hook, ...)
// and a list of callbacks that release resources in registration order.
package shutdown

import "github.com/prime-system/prime-agent/pkg/logger"

// Func adapts a plain function to the Callback interface.
type Func func(string) error

func (f Func) OnShutdown(name string) error { return f(name) }

// Callback is notified when a shutdown manager triggers.
type Callback interface {
	OnShutdown(name string) error
}

// Manager watches for a shutdown trigger (signals, admin API, ...) and
// invokes a supplied notify function when it fires.
type Manager interface {
	Name() string
	Start(notify func(name string)) error
}

// GracefulShutdown owns the manager list and the callbacks run on trigger.
type GracefulShutdown struct {
	managers  []Manager
	callbacks []Callback
}

func New() *GracefulShutdown {
	return &GracefulShutdown{}
}

func (g *GracefulShutdown) AddShutdownManager(m Manager) {
	g.managers = append(g.managers, m)
}

func (g *GracefulShutdown) AddShutdownCallback(cb Callback) {
	g.callbacks = append(g.callbacks, cb)
}

// Start registers the notify hook with every manager. It returns once all
// managers have started watching; the actual shutdown runs asynchronously
// when a manager calls back.
func (g *GracefulShutdown) Start() error {
	for _, m := range g.managers {
		if err := m.Start(g.shutdown); err != nil {
			return err
		}
	}
	return nil
}

func (g *GracefulShutdown) shutdown(name string) {
	logger.Info("shutdown triggered by %s", name)
	for _, cb := range g.callbacks {
		if err := cb.OnShutdown(name); err != nil {
			logger.Error("shutdown callback error: %v", err)
		}
	}
}
