package domain

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

const MaxMessageLen = 4096

var (
	ErrMessageEmpty   = errors.New("message body empty")
	ErrMessageTooLong = errors.New("message body too long")
)

// Message is one persisted chat line, either in a conversation or in a
// live-stream chat. Channel is the room id the message was addressed to.
type Message struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Channel   string    `gorm:"index;not null" json:"channel"`
	SenderID  string    `gorm:"index;not null" json:"senderId"`
	Body      string    `gorm:"not null" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage assigns a ULID so ids sort by creation time.
func NewMessage(channel RoomID, sender UserID, body string) (*Message, error) {
	if len(body) == 0 {
		return nil, ErrMessageEmpty
	}
	if len(body) > MaxMessageLen {
		return nil, ErrMessageTooLong
	}
	return &Message{
		ID:        ulid.Make().String(),
		Channel:   string(channel),
		SenderID:  string(sender),
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}, nil
}
