package dto

import (
	"time"

	"github.com/yukikurage/collab-chat-api/internal/models"
)

// ChannelDTO represents a channel in API responses
type ChannelDTO struct {
	ID         uint64             `json:"id"`
	TenantID   uint64             `json:"tenant_id"`
	Name       string             `json:"name"`
	Type       models.ChannelType `json:"type"`
	ReadOnly   bool               `json:"read_only"`
	IsArchived bool               `json:"is_archived"`
	CreatedBy  uint64             `json:"created_by"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ChannelMemberDTO represents a member in a channel
type ChannelMemberDTO struct {
	User                   UserDTO                       `json:"user"`
	Role                   models.ChannelRole            `json:"role"`
	NotificationPreference models.NotificationPreference `json:"notification_preference"`
	MutedUntil             *time.Time                    `json:"muted_until,omitempty"`
	JoinedAt               time.Time                     `json:"joined_at"`
}

// ChannelListResponse wraps a channel listing
type ChannelListResponse struct {
	Channels []ChannelDTO `json:"channels"`
}

// ToChannelDTO converts a Channel model to ChannelDTO
func ToChannelDTO(channel models.Channel) ChannelDTO {
	return ChannelDTO{
		ID:         channel.ID,
		TenantID:   channel.TenantID,
		Name:       channel.Name,
		Type:       channel.Type,
		ReadOnly:   channel.ReadOnly,
		IsArchived: channel.IsArchived,
		CreatedBy:  channel.CreatedBy,
		CreatedAt:  channel.CreatedAt,
	}
}

func ToChannelDTOs(channels []models.Channel) []ChannelDTO {
	out := make([]ChannelDTO, len(channels))
	for i, c := range channels {
		out[i] = ToChannelDTO(c)
	}
	return out
}

// ToChannelMemberDTO converts a member to DTO
func ToChannelMemberDTO(member models.ChannelMember) ChannelMemberDTO {
	user := member.User
	if user.ID == 0 {
		user.ID = member.UserID
	}
	return ChannelMemberDTO{
		User:                   ToUserDTO(user),
		Role:                   member.Role,
		NotificationPreference: member.NotificationPreference,
		MutedUntil:             member.MutedUntil,
		JoinedAt:               member.JoinedAt,
	}
}

func ToChannelMemberDTOs(members []models.ChannelMember) []ChannelMemberDTO {
	out := make([]ChannelMemberDTO, len(members))
	for i, m := range members {
		out[i] = ToChannelMemberDTO(m)
	}
	return out
}
