// Package posixsignal implements a shutdown.Manager triggered by SIGINT/SIGTERM.
package posixsignal

import (
	"os"
	"os/signal"
	"syscall"
)

const Name = "posix-signal"

type Manager struct{}

func NewPosixSignalManager() *Manager {
	return &Manager{}
}

func (m *Manager) Name() string { return Name }

func (m *Manager) Start(notify func(name string)) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		notify(Name)
	}()
	return nil
}
