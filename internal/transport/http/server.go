package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/thorx18/project-management-system/internal/auth"
	"github.com/thorx18/project-management-system/internal/config"
	"github.com/thorx18/project-management-system/internal/core"
	"github.com/thorx18/project-management-system/internal/media"
)

// Hub is the part of core.Hub the transport layer drives.
type Hub interface {
	RegisterClient(c *core.Client) error
	UnregisterClient(c *core.Client)
	Presence(ctx context.Context, roomID string) ([]core.PresenceEntry, error)
	Publish(ctx context.Context, roomID string, cmd *core.Command) (int, error)
	Stats(ctx context.Context) (core.Stats, error)
}

// NewServer builds the HTTP server: health, metrics, the WebSocket relay and
// the collaborator REST API.
func NewServer(hub Hub, provider media.Provider, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, provider, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts the WebSocket endpoint on a plain mux and everything else
// on the gin router. gin's response writer refuses to hijack once the 101 is
// flushed, so /ws must not pass through it.
func NewHandler(hub Hub, provider media.Provider, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", NewRouter(hub, provider, cfg, logger))
	return mux
}

// NewRouter registers the REST, health and metrics routes on a fresh gin
// engine.
func NewRouter(hub Hub, provider media.Provider, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if provider == nil {
		provider = media.Disabled{}
	}
	jwtCfg := JWTConfig(cfg)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", healthHandler)
	router.GET("/api/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiHandlers := NewAPIHandlers(hub, logger)
	mediaHandlers := NewMediaHandlers(provider, logger)

	api := router.Group("/api")
	if jwtCfg.Enabled() {
		api.Use(AuthMiddleware(jwtCfg, logger))
	}
	{
		api.GET("/stats", apiHandlers.Stats)
		api.GET("/rooms/:roomId/presence", apiHandlers.Presence)
		api.POST("/rooms/:roomId/events", apiHandlers.PublishEvent)
		api.GET("/media/token", mediaHandlers.Token)
	}

	return router
}

// JWTConfig extracts token verification settings from cfg.
func JWTConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
