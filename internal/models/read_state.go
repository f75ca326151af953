package models

import "time"

type ReadState struct {
	UserID            uint64    `gorm:"primarykey" json:"user_id"`
	ChannelID         uint64    `gorm:"primarykey;index" json:"channel_id"`
	LastReadMessageID uint64    `gorm:"not null;default:0" json:"last_read_message_id"`
	UnreadCount       int64     `gorm:"not null;default:0" json:"unread_count"`
	UnreadMentions    int64     `gorm:"not null;default:0" json:"unread_mentions"`
	UpdatedAt         time.Time `json:"updated_at"`
}
