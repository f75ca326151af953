package dto

import (
	"time"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/services"
)

// MessageDTO represents a message in API responses. Deleted messages arrive
// already redacted.
type MessageDTO struct {
	ID              uint64             `json:"id"`
	ChannelID       uint64             `json:"channel_id"`
	UserID          uint64             `json:"user_id"`
	Content         string             `json:"content"`
	Type            models.MessageType `json:"type"`
	ParentMessageID *uint64            `json:"parent_message_id"`
	IsEdited        bool               `json:"is_edited"`
	IsDeleted       bool               `json:"is_deleted"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// MessageListResponse is a page of messages, newest first
type MessageListResponse struct {
	Messages []MessageDTO `json:"messages"`
	// NextBefore is the cursor for the next older page
	NextBefore *uint64 `json:"next_before,omitempty"`
}

// PollResponse carries new messages, oldest first; empty on timeout
type PollResponse struct {
	Messages []MessageDTO `json:"messages"`
}

// ThreadResponse is a parent message with its replies
type ThreadResponse struct {
	Parent  MessageDTO   `json:"parent"`
	Replies []MessageDTO `json:"replies"`
}

// UnreadSummaryResponse maps channel ids to their counters
type UnreadSummaryResponse struct {
	Channels map[uint64]services.UnreadCounts `json:"channels"`
}

// ToMessageDTO converts a Message model to MessageDTO
func ToMessageDTO(m models.Message) MessageDTO {
	return MessageDTO{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		UserID:          m.UserID,
		Content:         m.Content,
		Type:            m.Type,
		ParentMessageID: m.ParentMessageID,
		IsEdited:        m.IsEdited,
		IsDeleted:       m.IsDeleted,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func ToMessageDTOs(messages []models.Message) []MessageDTO {
	out := make([]MessageDTO, len(messages))
	for i, m := range messages {
		out[i] = ToMessageDTO(m)
	}
	return out
}

// ToMessageListResponse builds a page response; a full page carries the
// cursor of its oldest message.
func ToMessageListResponse(messages []models.Message, limit int) MessageListResponse {
	resp := MessageListResponse{Messages: ToMessageDTOs(messages)}
	if len(messages) > 0 && len(messages) == limit {
		oldest := messages[len(messages)-1].ID
		resp.NextBefore = &oldest
	}
	return resp
}
