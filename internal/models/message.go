package models

import "time"

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
	MessageTypeFile   MessageType = "file"
)

// Message is append-only. Edits keep the id; deletes only set IsDeleted,
// because read-state cursors reference ids.
type Message struct {
	ID              uint64      `gorm:"primarykey;index:idx_messages_channel_cursor,priority:2" json:"id"`
	TenantID        uint64      `gorm:"not null;index" json:"tenant_id"`
	ChannelID       uint64      `gorm:"not null;index:idx_messages_channel_cursor,priority:1" json:"channel_id"`
	UserID          uint64      `gorm:"not null;index" json:"user_id"`
	Content         string      `gorm:"type:text;not null" json:"content"`
	Type            MessageType `gorm:"type:varchar(20);not null;default:'text'" json:"type"`
	ParentMessageID *uint64     `gorm:"index" json:"parent_message_id"`
	IsEdited        bool        `gorm:"not null;default:false" json:"is_edited"`
	IsDeleted       bool        `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
