package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/adapters/httpapi"
	"github.com/pulsesocial/pulse/internal/adapters/ws"
	"github.com/pulsesocial/pulse/internal/auth"
	"github.com/pulsesocial/pulse/internal/config"
	"github.com/pulsesocial/pulse/internal/notify"
	"github.com/pulsesocial/pulse/internal/realtime"
	"github.com/pulsesocial/pulse/internal/relay"
	"github.com/pulsesocial/pulse/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	messages := storage.NewMessageRepository(db)

	rooms := realtime.NewRooms()
	registry := realtime.NewRegistry(rooms)
	dispatcher := realtime.NewDispatcher(registry, rooms, realtime.KickPolicy{}, messages)
	verifier := auth.NewVerifier(cfg.Secret)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NatsURL != "" {
		rl, err := relay.Connect(cfg.NatsURL, rooms)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect relay")
		}
		defer rl.Close()
		notifier = notify.NewNATSNotifier(rl.Conn())
	}

	wsCtl := ws.NewController(dispatcher, verifier, cfg)
	api := &httpapi.API{Rooms: rooms, Messages: messages, Notifier: notifier}

	r := httpapi.SetupRouter(ctx, cfg, api, wsCtl, verifier)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Pulse gateway started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
