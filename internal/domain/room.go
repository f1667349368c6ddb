package domain

import "strings"

type (
	RoomID         string
	ConversationID string
	StreamID       string
)

// Room prefixes keep the three addressing spaces (personal channels,
// conversations, live streams) from colliding inside one router.
const (
	UserRoomPrefix         = "user:"
	ConversationRoomPrefix = "conversation:"
	StreamRoomPrefix       = "stream:"
)

func UserRoom(id UserID) RoomID {
	return RoomID(UserRoomPrefix + string(id))
}

func ConversationRoom(id ConversationID) RoomID {
	return RoomID(ConversationRoomPrefix + string(id))
}

func StreamRoom(id StreamID) RoomID {
	return RoomID(StreamRoomPrefix + string(id))
}

// StreamID reports whether the room addresses a live stream and, if so,
// which one.
func (r RoomID) StreamID() (StreamID, bool) {
	s, ok := strings.CutPrefix(string(r), StreamRoomPrefix)
	return StreamID(s), ok
}

// ConversationID reports whether the room addresses a conversation.
func (r RoomID) ConversationID() (ConversationID, bool) {
	s, ok := strings.CutPrefix(string(r), ConversationRoomPrefix)
	return ConversationID(s), ok
}
