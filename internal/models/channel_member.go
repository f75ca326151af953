package models

import "time"

type ChannelRole string

const (
	ChannelRoleOwner     ChannelRole = "owner"
	ChannelRoleAdmin     ChannelRole = "admin"
	ChannelRoleModerator ChannelRole = "moderator"
	ChannelRoleMember    ChannelRole = "member"
)

func (r ChannelRole) Valid() bool {
	switch r {
	case ChannelRoleOwner, ChannelRoleAdmin, ChannelRoleModerator, ChannelRoleMember:
		return true
	}
	return false
}

// CanManage reports whether the role may archive, rename or edit the roster.
func (r ChannelRole) CanManage() bool {
	return r == ChannelRoleOwner || r == ChannelRoleAdmin
}

type NotificationPreference string

const (
	NotifyAll      NotificationPreference = "all"
	NotifyMentions NotificationPreference = "mentions"
	NotifyNone     NotificationPreference = "none"
)

func (p NotificationPreference) Valid() bool {
	switch p {
	case NotifyAll, NotifyMentions, NotifyNone:
		return true
	}
	return false
}

type ChannelMember struct {
	ChannelID              uint64                 `gorm:"primarykey" json:"channel_id"`
	UserID                 uint64                 `gorm:"primarykey;index" json:"user_id"`
	Role                   ChannelRole            `gorm:"type:varchar(20);not null" json:"role"`
	NotificationPreference NotificationPreference `gorm:"type:varchar(20);not null;default:'all'" json:"notification_preference"`
	MutedUntil             *time.Time             `json:"muted_until"`
	JoinedAt               time.Time              `json:"joined_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsMuted reports whether the mute window is still open at now.
func (m *ChannelMember) IsMuted(now time.Time) bool {
	return m.MutedUntil != nil && m.MutedUntil.After(now)
}
