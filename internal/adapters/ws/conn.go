// Package ws is the WebSocket transport adapter: it owns the upgraded
// connection, its read/write pumps and the decode of inbound events.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/realtime"
)

// Conn wraps one upgraded WebSocket connection. It implements
// realtime.Sender; the buffered send channel plus a single writer
// goroutine gives per-recipient FIFO delivery.
type Conn struct {
	ws           *websocket.Conn
	send         chan realtime.Frame
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, buffer int, writeTimeout time.Duration) *Conn {
	return &Conn{
		ws:           ws,
		send:         make(chan realtime.Frame, buffer),
		writeTimeout: writeTimeout,
	}
}

func (c *Conn) TrySend(f realtime.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.ErrBackpressure
	}
	select {
	case c.send <- f:
		return nil
	default:
		return realtime.ErrBackpressure
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.ws.Close()
}

func (c *Conn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}
