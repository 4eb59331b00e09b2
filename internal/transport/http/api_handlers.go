package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/thorx18/project-management-system/internal/core"
	"github.com/thorx18/project-management-system/internal/proto"
)

// APIHandlers serves the collaborator-facing REST endpoints.
type APIHandlers struct {
	hub Hub
	log *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{hub: hub, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PublishRequest is the body of a collaborator publish. Kind is only read
// for entity_mutation.
type PublishRequest struct {
	Event   string          `json:"event" binding:"required,oneof=chat_broadcast entity_mutation"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// PublishResponse reports how many connections accepted the event.
type PublishResponse struct {
	Delivered int `json:"delivered"`
}

// PresenceResponse is the current online list of a room.
type PresenceResponse struct {
	RoomID string               `json:"roomId"`
	Users  []proto.PresenceUser `json:"users"`
}

// PublishEvent relays an object the CRUD layer has just persisted.
// POST /api/rooms/:roomId/events
func (h *APIHandlers) PublishEvent(c *gin.Context) {
	roomID := c.Param("roomId")

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid publish request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	cmd := &core.Command{Kind: core.CommandChatBroadcast, Payload: req.Payload}
	if req.Event == proto.InboundTypeEntityMutation {
		cmd.Kind = core.CommandEntityMutation
		cmd.Mutation = core.MutationKind(req.Kind)
	}

	delivered, err := h.hub.Publish(c.Request.Context(), roomID, cmd)
	if err != nil {
		h.writeHubError(c, err)
		return
	}

	h.log.Debug().Str("room", roomID).Str("event", req.Event).Int("delivered", delivered).Msg("collaborator event published")
	c.JSON(http.StatusAccepted, PublishResponse{Delivered: delivered})
}

// Presence returns the room's current snapshot.
// GET /api/rooms/:roomId/presence
func (h *APIHandlers) Presence(c *gin.Context) {
	roomID := c.Param("roomId")

	entries, err := h.hub.Presence(c.Request.Context(), roomID)
	if err != nil {
		h.writeHubError(c, err)
		return
	}

	users := make([]proto.PresenceUser, 0, len(entries))
	for _, e := range entries {
		users = append(users, presenceUser(e))
	}
	c.JSON(http.StatusOK, PresenceResponse{RoomID: roomID, Users: users})
}

// Stats reports live connection, room and call counts.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	stats, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		h.writeHubError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandlers) writeHubError(c *gin.Context, err error) {
	var cerr *core.CoreError
	switch {
	case errors.As(err, &cerr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: cerr.Message})
	case errors.Is(err, core.ErrHubStopped):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "server is shutting down"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("hub request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
