package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
)

// conn wraps a *websocket.Conn as a session.Transport. gorilla/websocket
// forbids concurrent writers on the same connection, but Send is called
// both from this package's own reader goroutine (connected/status/replay)
// and from the Session Manager's processing task, so every write goes
// through writeMu.
type conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

// Send implements session.Transport.
func (c *conn) Send(ev *event.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.ws.WriteJSON(ev)
}

// Disconnect implements session.Transport.
func (c *conn) Disconnect() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.ws.Close()
}
