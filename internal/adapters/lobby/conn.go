package lobby

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Lobby/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// outFrame tags a queued frame with its websocket message type.
type outFrame struct {
	binary bool
	data   core.Frame
}

// wsConn implements core.SignalConnection over a gorilla websocket.
// TrySend never blocks: a full send buffer surfaces as ErrBackpressure and
// the policy decides what happens to the member.
type wsConn struct {
	conn *websocket.Conn
	send chan outFrame

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan outFrame, buffer),
	}
}

func (c *wsConn) TrySend(f core.Frame) error {
	return c.trySend(outFrame{data: f})
}

func (c *wsConn) TrySendBinary(f core.Frame) error {
	return c.trySend(outFrame{binary: true, data: f})
}

func (c *wsConn) trySend(f outFrame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
