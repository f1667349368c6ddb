package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/domain"
)

// MessageStore is the persistence collaborator. Stream chat writes go
// through it fire-and-forget: the broadcast never waits on the write.
type MessageStore interface {
	Save(ctx context.Context, msg *domain.Message) error
}

const persistTimeout = 5 * time.Second

// Dispatcher interprets inbound events and translates them into registry
// and router operations. One instance serves every connection; handler
// errors are isolated per invocation.
type Dispatcher struct {
	Registry *Registry
	Rooms    *Rooms
	Policy   Policy
	Store    MessageStore
}

func NewDispatcher(reg *Registry, rooms *Rooms, policy Policy, store MessageStore) *Dispatcher {
	return &Dispatcher{Registry: reg, Rooms: rooms, Policy: policy, Store: store}
}

// OnConnect registers a freshly upgraded connection.
func (d *Dispatcher) OnConnect(id ConnID, sender Sender) {
	d.Registry.Register(id, sender)
}

// OnDisconnect tears the connection down. Safe to call more than once.
func (d *Dispatcher) OnDisconnect(id ConnID) {
	d.Registry.Unregister(id)
}

// Dispatch applies one decoded event. The only error it can return is
// ErrUnknownConnection, which is a defect in the caller.
func (d *Dispatcher) Dispatch(id ConnID, ev Event) error {
	switch e := ev.(type) {
	case Join:
		sender, ok := d.Registry.SenderOf(id)
		if !ok {
			return ErrUnknownConnection
		}
		d.Registry.BindUser(id, e.UserID)
		d.Rooms.Join(id, sender, domain.UserRoom(e.UserID))

	case JoinConversation:
		sender, ok := d.Registry.SenderOf(id)
		if !ok {
			return ErrUnknownConnection
		}
		d.Rooms.Join(id, sender, domain.ConversationRoom(e.ConversationID))

	case LeaveConversation:
		if _, ok := d.Registry.SenderOf(id); !ok {
			return ErrUnknownConnection
		}
		d.Rooms.Leave(id, domain.ConversationRoom(e.ConversationID))

	case Typing:
		// Self-echo is useless for typing indicators.
		room := domain.ConversationRoom(e.ConversationID)
		d.publish(room, OutUserTyping, struct {
			UserID   domain.UserID `json:"userId"`
			IsTyping bool          `json:"isTyping"`
		}{e.UserID, e.IsTyping}, id)

	case JoinStream:
		sender, ok := d.Registry.SenderOf(id)
		if !ok {
			return ErrUnknownConnection
		}
		room := domain.StreamRoom(e.StreamID)
		d.Rooms.Join(id, sender, room)
		d.publish(room, OutViewerJoined, struct {
			SocketID ConnID `json:"socketId"`
		}{id}, id)

	case LeaveStream:
		if _, ok := d.Registry.SenderOf(id); !ok {
			return ErrUnknownConnection
		}
		room := domain.StreamRoom(e.StreamID)
		d.Rooms.Leave(id, room)
		d.publish(room, OutViewerLeft, struct {
			SocketID ConnID `json:"socketId"`
		}{id}, id)

	case StreamChat:
		// Clients rely on the server echo for ordering, so the sender
		// gets its own message back.
		room := domain.StreamRoom(e.StreamID)
		d.publish(room, OutChatMessage, e.Message, NoExclude)
		d.persistStreamChat(id, e)

	case StreamReaction:
		room := domain.StreamRoom(e.StreamID)
		d.publish(room, OutReaction, struct {
			Emoji  string        `json:"emoji"`
			UserID domain.UserID `json:"userId"`
		}{e.Emoji, e.UserID}, NoExclude)
	}
	return nil
}

func (d *Dispatcher) publish(room domain.RoomID, typ string, data any, exclude ConnID) {
	frame, err := Encode(typ, data)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime.dispatcher").Str("event", typ).Msg("encode failed")
		return
	}
	res := d.Rooms.Broadcast(room, frame, exclude)
	d.applyBackpressure(room, res)
}

func (d *Dispatcher) applyBackpressure(room domain.RoomID, res PublishResult) {
	if d.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch d.Policy.OnBackpressure(room, slow) {
		case KickMember:
			sender, ok := d.Registry.SenderOf(slow)
			d.Registry.Unregister(slow)
			if ok {
				sender.Close()
			}
			log.Warn().Str("module", "realtime.dispatcher").Str("conn", string(slow)).Str("room", string(room)).Msg("kicked slow consumer")
		case DropFrame, NoAction:
		}
	}
}

func (d *Dispatcher) persistStreamChat(id ConnID, e StreamChat) {
	if d.Store == nil {
		return
	}
	sender, ok := d.Registry.UserOf(id)
	if !ok {
		sender = domain.UserID(id)
	}
	msg, err := domain.NewMessage(domain.StreamRoom(e.StreamID), sender, string(e.Message))
	if err != nil {
		log.Warn().Err(err).Str("module", "realtime.dispatcher").Str("conn", string(id)).Msg("not persisting stream chat")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := d.Store.Save(ctx, msg); err != nil {
			log.Error().Err(err).Str("module", "realtime.dispatcher").Str("message", msg.ID).Msg("persist stream chat failed")
		}
	}()
}
