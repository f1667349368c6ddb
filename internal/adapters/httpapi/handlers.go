package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/auth"
	"github.com/pulsesocial/pulse/internal/domain"
	"github.com/pulsesocial/pulse/internal/notify"
	"github.com/pulsesocial/pulse/internal/realtime"
	"github.com/pulsesocial/pulse/internal/storage"
)

const pushTimeout = 5 * time.Second

// API bundles the collaborators the HTTP handlers touch.
type API struct {
	Rooms    *realtime.Rooms
	Messages *storage.MessageRepository
	Notifier notify.Notifier
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.Rooms.List()})
}

func (a *API) conversationHistory(c *gin.Context) {
	room := domain.ConversationRoom(domain.ConversationID(c.Param("id")))
	a.history(c, room)
}

func (a *API) streamChatHistory(c *gin.Context) {
	room := domain.StreamRoom(domain.StreamID(c.Param("id")))
	a.history(c, room)
}

func (a *API) history(c *gin.Context, room domain.RoomID) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	msgs, err := a.Messages.History(c.Request.Context(), room, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "httpapi").Str("room", string(room)).Msg("history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type postMessageRequest struct {
	Body       string   `json:"body" binding:"required"`
	Recipients []string `json:"recipients"`
}

// postConversationMessage persists the message, echoes it into the
// conversation room and hands push notifications off for participants
// with no live connection. The broadcast does not wait on anything.
func (a *API) postConversationMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	convID := domain.ConversationID(c.Param("id"))
	senderID, err := domain.ParseUserID(auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	room := domain.ConversationRoom(convID)
	msg, err := domain.NewMessage(room, senderID, req.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.Messages.Save(c.Request.Context(), msg); err != nil {
		log.Error().Err(err).Str("module", "httpapi").Str("message", msg.ID).Msg("persist failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	if frame, err := realtime.Encode(realtime.OutChatMessage, msg); err == nil {
		a.Rooms.BroadcastToAll(room, frame)
	} else {
		log.Error().Err(err).Str("module", "httpapi").Msg("encode broadcast")
	}

	a.notifyOffline(req.Recipients, senderID, msg)

	c.JSON(http.StatusCreated, msg)
}

// notifyOffline pushes to recipients without a live personal channel.
// Fire-and-forget: delivery failures only get logged.
func (a *API) notifyOffline(recipients []string, sender domain.UserID, msg *domain.Message) {
	for _, raw := range recipients {
		uid, err := domain.ParseUserID(raw)
		if err != nil || uid == sender {
			continue
		}
		if a.Rooms.MemberCount(domain.UserRoom(uid)) > 0 {
			continue
		}
		go func(uid domain.UserID) {
			ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()
			err := a.Notifier.Push(ctx, notify.Notification{
				UserID: string(uid),
				Title:  "New message",
				Body:   msg.Body,
				Data:   map[string]string{"channel": msg.Channel, "messageId": msg.ID},
			})
			if err != nil {
				log.Error().Err(err).Str("module", "httpapi").Str("user", string(uid)).Msg("push hand-off failed")
			}
		}(uid)
	}
}
