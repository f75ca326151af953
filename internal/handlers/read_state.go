package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/dto"
	"github.com/yukikurage/collab-chat-api/internal/services"
)

// ReadStateHandler serves read cursors and unread counters.
type ReadStateHandler struct {
	readStates *services.ReadStateService
}

func NewReadStateHandler(readStates *services.ReadStateService) *ReadStateHandler {
	return &ReadStateHandler{readStates: readStates}
}

// MarkRead moves the caller's read cursor of a channel forward.
func (h *ReadStateHandler) MarkRead(c *gin.Context) {
	type MarkReadRequest struct {
		ChannelID     uint64 `json:"channel_id" binding:"required"`
		LastMessageID uint64 `json:"last_message_id"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.readStates.MarkRead(c.Request.Context(), p, req.ChannelID, req.LastMessageID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

// UnreadSummary returns the unread counters of the caller's tenant.
func (h *ReadStateHandler) UnreadSummary(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	summary, err := h.readStates.UnreadSummary(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadSummaryResponse{Channels: summary})
}
