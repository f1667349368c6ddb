// Package realtime implements the room-based event fan-out: the connection
// registry, the room router and the dispatcher that translates inbound
// client events into joins, leaves and broadcasts.
package realtime

import "errors"

// Frame is one outbound wire unit, already encoded.
type Frame []byte

// ConnID identifies one live transport session.
type ConnID string

var (
	ErrBackpressure      = errors.New("backpressure")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Sender is the transport endpoint of a connection.
// Owned by the adapter; the adapter must Close() it.
type Sender interface {
	// TrySend enqueues a frame without blocking. Frames enqueued by
	// successive calls are delivered in order.
	TrySend(Frame) error
	Close()
}
