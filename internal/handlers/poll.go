package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/dto"
	apierrors "github.com/yukikurage/collab-chat-api/internal/errors"
	"github.com/yukikurage/collab-chat-api/internal/logger"
	"github.com/yukikurage/collab-chat-api/internal/middleware"
	"github.com/yukikurage/collab-chat-api/internal/services"
	"github.com/yukikurage/collab-chat-api/internal/utils"
	"go.uber.org/zap"
)

// PollHandler serves the long-poll endpoint.
type PollHandler struct {
	polls *services.PollService
}

func NewPollHandler(polls *services.PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

// Poll waits for messages newer than since_id. timeout is in seconds.
func (h *PollHandler) Poll(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var sinceID uint64
	if raw := c.Query("since_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid since_id")
			return
		}
		sinceID = v
	}

	channelID, err := utils.ParseOptionalID(c.Query("channel_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid channel_id")
		return
	}

	var timeout time.Duration
	if raw := c.Query("timeout"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			apierrors.BadRequest(c, "Invalid timeout")
			return
		}
		timeout = time.Duration(seconds) * time.Second
	}

	messages, err := h.polls.Poll(c.Request.Context(), services.PollInput{
		Token:             middleware.GetToken(c),
		RequestedTenantID: p.RequestedTenantID(),
		SinceID:           sinceID,
		ChannelID:         channelID,
		Timeout:           timeout,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// client went away; nobody reads the response
			logger.FromContext(c).Debug("Poll cancelled", zap.Uint64("user_id", p.UserID()))
			c.Abort()
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PollResponse{Messages: dto.ToMessageDTOs(messages)})
}
