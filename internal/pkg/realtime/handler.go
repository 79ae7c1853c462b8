package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models/dto"
)

// Handler upgrades authenticated requests to websocket connections
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandler creates a new websocket handler
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

// HandleConnection godoc
// @Summary Open the realtime event stream
// @Description Upgrades to a websocket that receives events addressed to the caller (message.new, peer.joined, peer.left, signal, submission.graded). Browsers pass the JWT in the token query parameter.
// @Tags realtime
// @Produce json
// @Security BearerAuth
// @Param token query string false "JWT when the Authorization header cannot be set"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	principal, err := auth.MustFromContext(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required"),
		))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("userID", principal.UserID).
			Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := NewClient(h.hub, conn, principal.UserID, h.logger)
	if !client.Start() {
		h.logger.Warn().Int64("userID", principal.UserID).Msg("Realtime hub not running, connection closed")
		return
	}

	h.logger.Info().
		Int64("userID", principal.UserID).
		Str("remoteAddr", client.remoteAddr).
		Msg("WebSocket connection established")
}
