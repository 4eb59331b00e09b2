package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/thorx18/project-management-system/internal/config"
	"github.com/thorx18/project-management-system/internal/core"
	"github.com/thorx18/project-management-system/internal/media"
	"github.com/thorx18/project-management-system/internal/media/livekit"
	transporthttp "github.com/thorx18/project-management-system/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	provider, err := newMediaProvider(cfg.LiveKit)
	if err != nil {
		return nil, fmt.Errorf("init media provider: %w", err)
	}
	if cfg.LiveKit.Enabled() {
		logger.Info().Str("livekit_url", cfg.LiveKit.URL).Msg("media tokens enabled")
	} else {
		logger.Info().Msg("livekit not configured, media token endpoint disabled")
	}

	hub := core.NewHub(core.Options{RingTimeout: cfg.RingTimeout, Logger: logger})
	server := transporthttp.NewServer(hub, provider, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}, nil
}

func newMediaProvider(cfg config.LiveKitConfig) (media.Provider, error) {
	if !cfg.Enabled() {
		return media.Disabled{}, nil
	}
	return livekit.New(livekit.Options{
		URL:        cfg.URL,
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		RoomPrefix: cfg.RoomPrefix,
		TokenTTL:   cfg.TokenTTL,
	})
}

// Handler exposes the composed HTTP handler the server listens with.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the hub and the HTTP server and blocks until context
// cancellation or a fatal server error. On shutdown the hub stops first so
// hijacked WebSocket handlers see their queues close, then the server drains
// the remaining HTTP requests.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer func() {
		stopHub()
		<-a.hub.Done()
		a.log.Info().Msg("hub stopped")
	}()
	go a.hub.Run(hubCtx)

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Hijacked WebSocket connections are not tracked by Shutdown; stopping
		// the hub closes their event queues and the handlers exit.
		stopHub()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
