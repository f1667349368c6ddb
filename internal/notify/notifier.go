// Package notify hands push notifications off to the external delivery
// worker. Actual device delivery happens outside this service.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

const pushSubject = "pulse.push"

// Notification is the hand-off unit consumed by the delivery worker,
// which resolves the user's device tokens itself.
type Notification struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

type Notifier interface {
	Push(ctx context.Context, n Notification) error
}

// NATSNotifier publishes notifications on the push subject.
type NATSNotifier struct {
	nc *nats.Conn
}

func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

func (p *NATSNotifier) Push(_ context.Context, n Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := p.nc.Publish(pushSubject, b); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Nop drops notifications; used when the relay is disabled.
type Nop struct{}

func (Nop) Push(context.Context, Notification) error { return nil }
