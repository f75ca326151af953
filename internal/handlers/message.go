package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/dto"
	apierrors "github.com/yukikurage/collab-chat-api/internal/errors"
	"github.com/yukikurage/collab-chat-api/internal/services"
	"github.com/yukikurage/collab-chat-api/internal/utils"
)

// MessageHandler serves the message log endpoints.
type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// ListMessages returns a page of a channel's history, newest first.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	channelID, err := strconv.ParseUint(c.Query("channel_id"), 10, 64)
	if err != nil || channelID == 0 {
		apierrors.BadRequest(c, "channel_id is required")
		return
	}

	params, err := utils.GetCursorParams(c)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	messages, err := h.messages.List(c.Request.Context(), p, channelID, params.Before, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMessageListResponse(messages, params.Limit))
}

// PostMessage appends a message to a channel.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	type PostMessageRequest struct {
		ChannelID       uint64  `json:"channel_id" binding:"required"`
		Content         string  `json:"content"`
		ParentMessageID *uint64 `json:"parent_message_id"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := h.messages.Append(c.Request.Context(), p, services.AppendInput{
		ChannelID:       req.ChannelID,
		Content:         req.Content,
		ParentMessageID: req.ParentMessageID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageDTO(*message))
}

// EditMessage replaces the content of the caller's message.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	type EditMessageRequest struct {
		Content string `json:"content"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	messageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := h.messages.Edit(c.Request.Context(), p, messageID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMessageDTO(*message))
}

// DeleteMessage logically deletes a message.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	messageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.messages.Delete(c.Request.Context(), p, messageID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

// GetThread returns a message with its replies.
func (h *MessageHandler) GetThread(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	messageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	parent, replies, err := h.messages.Thread(c.Request.Context(), p, messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ThreadResponse{
		Parent:  dto.ToMessageDTO(*parent),
		Replies: dto.ToMessageDTOs(replies),
	})
}
