package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pulsesocial/pulse/internal/domain"
)

// Inbound event kinds. The set is closed: anything else is malformed.
type EventKind string

const (
	KindJoin              EventKind = "join"
	KindJoinConversation  EventKind = "join-conversation"
	KindLeaveConversation EventKind = "leave-conversation"
	KindTyping            EventKind = "typing"
	KindJoinStream        EventKind = "join-stream"
	KindLeaveStream       EventKind = "leave-stream"
	KindStreamChat        EventKind = "stream-chat"
	KindStreamReaction    EventKind = "stream-reaction"
)

// Outbound event names.
const (
	OutUserTyping   = "user-typing"
	OutViewerJoined = "viewer-joined"
	OutViewerLeft   = "viewer-left"
	OutChatMessage  = "chat-message"
	OutReaction     = "reaction"
)

var ErrMalformedEvent = errors.New("malformed event")

// Event is the decoded, validated form of one inbound wire message.
type Event interface {
	Kind() EventKind
}

type Join struct {
	UserID domain.UserID
}

type JoinConversation struct {
	ConversationID domain.ConversationID
}

type LeaveConversation struct {
	ConversationID domain.ConversationID
}

type Typing struct {
	ConversationID domain.ConversationID `json:"conversationId" validate:"required"`
	UserID         domain.UserID         `json:"userId" validate:"required"`
	IsTyping       bool                  `json:"isTyping"`
}

type JoinStream struct {
	StreamID domain.StreamID
}

type LeaveStream struct {
	StreamID domain.StreamID
}

type StreamChat struct {
	StreamID domain.StreamID `json:"streamId" validate:"required"`
	Message  json.RawMessage `json:"message" validate:"required"`
}

type StreamReaction struct {
	StreamID domain.StreamID `json:"streamId" validate:"required"`
	Emoji    string          `json:"emoji" validate:"required"`
	UserID   domain.UserID   `json:"userId" validate:"required"`
}

func (Join) Kind() EventKind              { return KindJoin }
func (JoinConversation) Kind() EventKind  { return KindJoinConversation }
func (LeaveConversation) Kind() EventKind { return KindLeaveConversation }
func (Typing) Kind() EventKind            { return KindTyping }
func (JoinStream) Kind() EventKind        { return KindJoinStream }
func (LeaveStream) Kind() EventKind       { return KindLeaveStream }
func (StreamChat) Kind() EventKind        { return KindStreamChat }
func (StreamReaction) Kind() EventKind    { return KindStreamReaction }

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var validate = validator.New()

// Decode parses one inbound wire message into a typed event. Every
// required field is checked here so the dispatcher never sees a
// half-filled payload.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch EventKind(env.Type) {
	case KindJoin:
		s, err := decodeString(env.Data)
		if err != nil {
			return nil, err
		}
		return Join{UserID: domain.UserID(s)}, nil
	case KindJoinConversation:
		s, err := decodeString(env.Data)
		if err != nil {
			return nil, err
		}
		return JoinConversation{ConversationID: domain.ConversationID(s)}, nil
	case KindLeaveConversation:
		s, err := decodeString(env.Data)
		if err != nil {
			return nil, err
		}
		return LeaveConversation{ConversationID: domain.ConversationID(s)}, nil
	case KindTyping:
		var p Typing
		if err := decodeObject(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindJoinStream:
		s, err := decodeString(env.Data)
		if err != nil {
			return nil, err
		}
		return JoinStream{StreamID: domain.StreamID(s)}, nil
	case KindLeaveStream:
		s, err := decodeString(env.Data)
		if err != nil {
			return nil, err
		}
		return LeaveStream{StreamID: domain.StreamID(s)}, nil
	case KindStreamChat:
		var p StreamChat
		if err := decodeObject(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindStreamReaction:
		var p StreamReaction
		if err := decodeObject(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, env.Type)
	}
}

func decodeString(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty id", ErrMalformedEvent)
	}
	return s, nil
}

func decodeObject(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

// Encode builds one outbound frame in the same envelope shape clients
// send: {"type": ..., "data": ...}.
func Encode(typ string, data any) (Frame, error) {
	b, err := json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{Type: typ, Data: data})
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
