package http

import (
	"errors"
	"net/http"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// LivestreamHandler is the REST surface for stream discovery and media token
// issuance. The signaling lifecycle itself rides on the realtime gateway;
// these endpoints exist for clients that list or join streams out of band.
type LivestreamHandler struct {
	streams ports.LivestreamRepository
	tokens  ports.MediaTokenService
}

func NewLivestreamHandler(streams ports.LivestreamRepository, tokens ports.MediaTokenService) *LivestreamHandler {
	return &LivestreamHandler{
		streams: streams,
		tokens:  tokens,
	}
}

// SetupRoutes registers the stream endpoints. Discovery is readable without a
// token, so the GETs go on the public group; the token endpoint requires the
// caller's identity and sits on the authed group.
func (h *LivestreamHandler) SetupRoutes(public, authed *gin.RouterGroup) {
	public.GET("/streams", h.ListStreams)
	public.GET("/streams/:streamer_id", h.GetStreamByStreamer)
	authed.POST("/streams/:streamer_id/token", h.IssueViewerToken)
}

func (h *LivestreamHandler) ListStreams(c *gin.Context) {
	streams, err := h.streams.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list streams"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"streams": streams,
		"count":   len(streams),
	})
}

func (h *LivestreamHandler) GetStreamByStreamer(c *gin.Context) {
	streamerID := domain.UserID(c.Param("streamer_id"))

	stream, err := h.streams.FindActiveByStreamer(c.Request.Context(), streamerID)
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up stream"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stream": stream,
	})
}

// IssueViewerToken issues an audience-scoped media token for the streamer's
// channel. The uid baked into the token is the authenticated caller, never a
// caller-supplied value.
func (h *LivestreamHandler) IssueViewerToken(c *gin.Context) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	userID, ok := userIDVal.(domain.UserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user context"})
		return
	}

	streamerID := domain.UserID(c.Param("streamer_id"))
	stream, err := h.streams.FindActiveByStreamer(c.Request.Context(), streamerID)
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up stream"})
		return
	}

	token, err := h.tokens.Issue(stream.ChannelName, userID, domain.RoleAudience)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue media token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        token,
		"channel_name": stream.ChannelName,
		"uid":          userID,
		"role":         domain.RoleAudience,
	})
}
