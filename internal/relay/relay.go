// Package relay bridges room broadcasts across server instances over
// NATS. Each instance republishes its local broadcasts and injects
// frames that originated elsewhere.
package relay

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/domain"
	"github.com/pulsesocial/pulse/internal/realtime"
)

const subjectPrefix = "pulse.room."

type frameMsg struct {
	Node  string          `json:"node"`
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`
}

// Relay implements realtime.Tap. Frames injected for remote broadcasts
// bypass the tap, so nothing loops back out.
type Relay struct {
	nc    *nats.Conn
	sub   *nats.Subscription
	node  string
	rooms *realtime.Rooms
}

// Connect dials NATS, subscribes to the room subject space and attaches
// itself as the router's broadcast tap.
func Connect(url string, rooms *realtime.Rooms) (*Relay, error) {
	nc, err := nats.Connect(url, nats.Name("pulse-relay"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	r := &Relay{nc: nc, node: uuid.NewString(), rooms: rooms}
	sub, err := nc.Subscribe(subjectPrefix+">", func(m *nats.Msg) {
		r.handleRemote(m.Data)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	r.sub = sub
	rooms.SetTap(r)
	log.Info().Str("module", "relay").Str("node", r.node).Str("url", url).Msg("relay connected")
	return r, nil
}

// OnBroadcast republishes a locally originated broadcast.
func (r *Relay) OnBroadcast(room domain.RoomID, frame realtime.Frame) {
	b, err := json.Marshal(frameMsg{Node: r.node, Room: string(room), Frame: json.RawMessage(frame)})
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("marshal frame")
		return
	}
	if err := r.nc.Publish(subjectPrefix+string(room), b); err != nil {
		log.Error().Err(err).Str("module", "relay").Str("room", string(room)).Msg("publish failed")
	}
}

// handleRemote injects a frame published by another node. Delivering to
// a room with no local members is a no-op.
func (r *Relay) handleRemote(data []byte) {
	var msg frameMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Str("module", "relay").Msg("dropping bad relay message")
		return
	}
	if msg.Node == r.node {
		return
	}
	r.rooms.Inject(domain.RoomID(msg.Room), realtime.Frame(msg.Frame))
}

// Conn exposes the underlying connection for co-located publishers.
func (r *Relay) Conn() *nats.Conn { return r.nc }

func (r *Relay) Close() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	if err := r.nc.Drain(); err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("drain failed")
	}
}
