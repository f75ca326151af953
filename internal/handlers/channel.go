package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/dto"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/services"
)

// ChannelHandler serves channel and channel membership endpoints.
type ChannelHandler struct {
	channels *services.ChannelService
}

func NewChannelHandler(channels *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// ListChannels lists the channels visible in the caller's tenant.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	channels, err := h.channels.ListChannels(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ChannelListResponse{Channels: dto.ToChannelDTOs(channels)})
}

// CreateChannel creates a channel owned by the caller.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	type CreateChannelRequest struct {
		Name     string             `json:"name"`
		Type     models.ChannelType `json:"type" binding:"required"`
		Members  []uint64           `json:"members"`
		ReadOnly bool               `json:"read_only"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	channel, err := h.channels.CreateChannel(c.Request.Context(), p, services.CreateChannelInput{
		Name:     req.Name,
		Type:     req.Type,
		Members:  req.Members,
		ReadOnly: req.ReadOnly,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToChannelDTO(*channel))
}

// ListMembers lists the members of a readable channel.
func (h *ChannelHandler) ListMembers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	members, err := h.channels.ListMembers(c.Request.Context(), p, channelID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": dto.ToChannelMemberDTOs(members)})
}

// JoinChannel adds the caller to a public channel.
func (h *ChannelHandler) JoinChannel(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	member, err := h.channels.JoinChannel(c.Request.Context(), p, channelID)
	if err != nil {
		respondError(c, err)
		return
	}

	member.User = p.User
	c.JSON(http.StatusCreated, dto.ToChannelMemberDTO(*member))
}

// LeaveChannel removes the caller from a channel.
func (h *ChannelHandler) LeaveChannel(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.channels.LeaveChannel(c.Request.Context(), p, channelID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left channel"})
}

// AddMember adds a tenant user to a channel.
func (h *ChannelHandler) AddMember(c *gin.Context) {
	type AddMemberRequest struct {
		UserID uint64             `json:"user_id" binding:"required"`
		Role   models.ChannelRole `json:"role"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	member, err := h.channels.AddMember(c.Request.Context(), p, channelID, req.UserID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToChannelMemberDTO(*member))
}

// RemoveMember removes a member from a channel.
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.channels.RemoveMember(c.Request.Context(), p, channelID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}

// RenameChannel renames a channel.
func (h *ChannelHandler) RenameChannel(c *gin.Context) {
	type RenameRequest struct {
		Name string `json:"name" binding:"required"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	channel, err := h.channels.RenameChannel(c.Request.Context(), p, channelID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChannelDTO(*channel))
}

// ArchiveChannel archives a channel.
func (h *ChannelHandler) ArchiveChannel(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	channel, err := h.channels.ArchiveChannel(c.Request.Context(), p, channelID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChannelDTO(*channel))
}

// UpdatePreferences sets the caller's notification settings for a channel.
func (h *ChannelHandler) UpdatePreferences(c *gin.Context) {
	type PreferencesRequest struct {
		NotificationPreference models.NotificationPreference `json:"notification_preference" binding:"required"`
		MutedUntil             *time.Time                    `json:"muted_until"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	err := h.channels.UpdatePreferences(c.Request.Context(), p, channelID, services.PreferencesInput{
		NotificationPreference: req.NotificationPreference,
		MutedUntil:             req.MutedUntil,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Preferences updated"})
}
