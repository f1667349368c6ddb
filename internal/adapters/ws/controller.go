package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/auth"
	"github.com/pulsesocial/pulse/internal/config"
	"github.com/pulsesocial/pulse/internal/realtime"
)

var upgrader = websocket.Upgrader{
	// TODO: restrict origins once the web client domains are fixed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller upgrades HTTP requests and bridges frames between the
// socket and the dispatcher.
type Controller struct {
	Dispatcher *realtime.Dispatcher
	Verifier   *auth.Verifier
	Limiter    *RateLimiter

	readLimit    int64
	sendBuffer   int
	writeTimeout time.Duration
}

func NewController(d *realtime.Dispatcher, v *auth.Verifier, cfg *config.Config) *Controller {
	return &Controller{
		Dispatcher:   d,
		Verifier:     v,
		Limiter:      NewRateLimiter(cfg.ChatRate, cfg.ChatInterval),
		readLimit:    cfg.ReadLimit,
		sendBuffer:   cfg.SendBuffer,
		writeTimeout: cfg.WriteTimeout,
	}
}

// Handle upgrades the request and runs the connection until it drops.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	sid := realtime.ConnID(uuid.NewString())

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}
	socket.SetReadLimit(ctl.readLimit)

	conn := newConn(socket, ctl.sendBuffer, ctl.writeTimeout)
	ctl.Dispatcher.OnConnect(sid, conn)
	log.Info().Str("module", "ws").Str("conn", string(sid)).Msg("connection open")

	// A valid handshake token binds the connection to a user up front;
	// an anonymous client can still identify later with a join event.
	if token := auth.TokenFromRequest(c); token != "" && ctl.Verifier != nil {
		if uid, err := ctl.Verifier.Verify(token); err == nil {
			ctl.Dispatcher.Registry.BindUser(sid, uid)
		} else {
			log.Warn().Err(err).Str("module", "ws").Str("conn", string(sid)).Msg("handshake token rejected")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		conn.writePump(ctx)
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
	}()
}

func (ctl *Controller) readPump(ctx context.Context, sid realtime.ConnID, conn *Conn) {
	defer func() {
		ctl.Dispatcher.OnDisconnect(sid)
		conn.Close()
		log.Info().Str("module", "ws").Str("conn", string(sid)).Msg("connection closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := conn.ws.ReadMessage()
			if err != nil {
				return
			}
			ctl.handle(sid, data)
		}
	}
}

// handle decodes one inbound message at the transport boundary so the
// dispatcher only ever sees validated, typed events.
func (ctl *Controller) handle(sid realtime.ConnID, data []byte) {
	ev, err := realtime.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(sid)).Msg("dropping malformed event")
		return
	}

	switch ev.Kind() {
	case realtime.KindStreamChat, realtime.KindStreamReaction:
		if !ctl.Limiter.Allow(ctl.limiterKey(sid)) {
			log.Warn().Str("module", "ws").Str("conn", string(sid)).Str("kind", string(ev.Kind())).Msg("rate limited")
			return
		}
	}

	if err := ctl.Dispatcher.Dispatch(sid, ev); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("conn", string(sid)).Str("kind", string(ev.Kind())).Msg("dispatch failed")
	}
}

func (ctl *Controller) limiterKey(sid realtime.ConnID) string {
	if uid, ok := ctl.Dispatcher.Registry.UserOf(sid); ok {
		return string(uid)
	}
	return string(sid)
}
