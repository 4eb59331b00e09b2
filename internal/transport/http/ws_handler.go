package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/thorx18/project-management-system/internal/auth"
	"github.com/thorx18/project-management-system/internal/config"
	"github.com/thorx18/project-management-system/internal/core"
	"github.com/thorx18/project-management-system/internal/proto"
	"github.com/thorx18/project-management-system/internal/utils"
)

const writeTimeout = 10 * time.Second

// errClosedByHub means the hub closed the client's event queue, either on
// shutdown or because the client could not keep up.
var errClosedByHub = errors.New("connection closed by server")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub Hub
	cfg *config.Config
	jwt auth.Config
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub Hub, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, cfg: cfg, jwt: JWTConfig(cfg), log: logger}
}

// wsSession is the per-connection state owned by the read loop.
type wsSession struct {
	client  *core.Client
	claims  *auth.Claims
	limiter *rateLimiter
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	claims, status, err := h.authenticate(r)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade refused")
		stdhttp.Error(w, err.Error(), status)
		return
	}

	opts := &websocket.AcceptOptions{}
	if len(h.cfg.AllowedOrigins) == 0 {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.cfg.AllowedOrigins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := &wsSession{
		client:  core.NewClient(utils.NewID(), h.cfg.EventBuffer),
		claims:  claims,
		limiter: newRateLimiter(h.cfg.RateLimit, h.cfg.RateBurst),
	}
	log := h.log.With().Str("conn_id", session.client.ID).Logger()
	if claims != nil {
		log = log.With().Str("user_id", claims.UserID()).Logger()
	}

	if err := h.hub.RegisterClient(session.client); err != nil {
		log.Warn().Err(err).Msg("ws refused, hub stopped")
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.UnregisterClient(session.client)
	log.Info().Msg("ws connected")

	hello := proto.EventConnectedData{ConnectionID: session.client.ID, Protocol: proto.ProtocolVersion}
	if claims != nil {
		hello.UserID = claims.UserID()
		hello.DisplayName = claims.Name
	}
	if err := h.write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventConnected, Data: hello}); err != nil {
		log.Warn().Err(err).Msg("send connected event")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session.client, &log)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	closeStatus := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
	case errors.Is(err, errClosedByHub):
		closeStatus = websocket.StatusGoingAway
		reason = err.Error()
	default:
		if s := websocket.CloseStatus(err); s != -1 {
			closeStatus = s
		}
		if closeStatus != websocket.StatusNormalClosure && closeStatus != websocket.StatusGoingAway {
			if closeStatus == -1 {
				closeStatus = websocket.StatusInternalError
			}
			reason = "connection error"
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	log.Info().Int("status", int(closeStatus)).Msg("ws disconnected")
	conn.Close(closeStatus, reason)
}

// authenticate verifies an optional upgrade token. A present but invalid
// token is always refused; a missing one only when tokens are required.
func (h *WSHandler) authenticate(r *stdhttp.Request) (*auth.Claims, int, error) {
	if !h.jwt.Enabled() {
		return nil, 0, nil
	}
	claims, err := auth.Validate(h.jwt, auth.TokenFromRequest(r))
	switch {
	case err == nil:
		return claims, 0, nil
	case errors.Is(err, auth.ErrMissingToken) && !h.cfg.JWTRequired:
		return nil, 0, nil
	default:
		return nil, stdhttp.StatusUnauthorized, err
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, s *wsSession, log *zerolog.Logger) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !s.limiter.allow() {
			if err := h.writeError(ctx, conn, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"}); err != nil {
				return err
			}
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			log.Debug().Err(err).Msg("malformed ws frame")
			if err := h.writeError(ctx, conn, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "malformed json"}); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(s.claims, inbound)
		if protoErr != nil {
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}

		select {
		case s.client.Commands <- cmd:
		case <-s.client.Done():
			return errClosedByHub
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, log *zerolog.Logger) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return errClosedByHub
			}
			if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
				log.Warn().Err(err).Str("event", event.Kind.String()).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, e *proto.Error) error {
	return h.write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: e})
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, out proto.Outbound) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, out)
}
