package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/adapters/lobby"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/metrics"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *lobby.Controller, collector metrics.Collector) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LobbySessions", store))

	r.GET("/health", func(c *gin.Context) {
		stats := ctl.Orch.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  stats.Rooms,
			"users":  stats.Sessions,
		})
	})
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	api := r.Group("/api")
	api.GET("/ws/lobby", func(c *gin.Context) {
		ctl.HandleLobby(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
