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

	"github.com/dkeye/Lobby/internal/adapters/auth"
	router "github.com/dkeye/Lobby/internal/adapters/http"
	"github.com/dkeye/Lobby/internal/adapters/lobby"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/metrics"
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

	reg := app.NewRegistry()
	rooms := app.NewRoomManager()
	chat := app.NewChatLog(cfg.ChatHistoryLimit)

	orchestrator := &orch.Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Chat:     chat,
		Policy:   app.SimplePolicy{},
	}
	orchestrator.Speaking = app.NewSpeakingTracker(cfg.SpeakingWindow, orchestrator.OnSpeakingTimeout)

	collector := metrics.NewPrometheusCollector()
	verifier := auth.NewVerifier(cfg.Secret)
	ctl := lobby.NewController(orchestrator, verifier, collector, cfg)
	orchestrator.Notify = ctl

	go orchestrator.RunChatSweeper(ctx, cfg.ChatClearInterval)

	r := router.SetupRouter(ctx, cfg, ctl, collector)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("media_mode", cfg.MediaMode).Msg("Lobby server started")
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
