package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/thorx18/project-management-system/internal/media"
)

// MediaHandlers issues media-provider credentials for agreed call channels.
type MediaHandlers struct {
	provider media.Provider
	log      *zerolog.Logger
}

// NewMediaHandlers creates a new media handlers instance.
func NewMediaHandlers(provider media.Provider, logger *zerolog.Logger) *MediaHandlers {
	return &MediaHandlers{provider: provider, log: logger}
}

// Token returns join credentials for a channel. An authenticated caller's
// token subject is used as the media identity.
// GET /api/media/token?channel=&identity=&name=
func (h *MediaHandlers) Token(c *gin.Context) {
	channel := c.Query("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "channel is required"})
		return
	}

	identity := c.Query("identity")
	name := c.Query("name")
	if uid := c.GetString(ContextKeyUserID); uid != "" {
		identity = uid
		if n := c.GetString(ContextKeyDisplayName); n != "" {
			name = n
		}
	}
	if identity == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "identity is required"})
		return
	}

	info, err := h.provider.JoinInfo(c.Request.Context(), channel, identity, name)
	if err != nil {
		if errors.Is(err, media.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "media provider not configured"})
			return
		}
		h.log.Error().Err(err).Str("channel_id", channel).Msg("failed to issue media token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Debug().Str("channel_id", channel).Str("identity", identity).Msg("media token issued")
	c.JSON(http.StatusOK, info)
}
