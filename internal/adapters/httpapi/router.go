// Package httpapi mounts the request/response surface around the
// realtime core: room introspection, message history and message posting.
package httpapi

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/adapters/ws"
	"github.com/pulsesocial/pulse/internal/auth"
	"github.com/pulsesocial/pulse/internal/config"
)

// ClientTokenMiddleware gives every browser a stable opaque token so
// anonymous sessions can be correlated across reconnects.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, api *API, wsCtl *ws.Controller, verifier *auth.Verifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PulseSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", api.health)

	g := r.Group("/api")
	g.GET("/rooms", api.listRooms)
	g.GET("/conversations/:id/messages", api.conversationHistory)
	g.POST("/conversations/:id/messages", auth.Middleware(verifier), api.postConversationMessage)
	g.GET("/streams/:id/chat", api.streamChatHistory)

	r.GET("/ws", func(c *gin.Context) {
		wsCtl.Handle(ctx, c)
	})

	log.Info().Str("module", "httpapi").Msg("router setup")
	return r
}
