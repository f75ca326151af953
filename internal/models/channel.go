package models

import "time"

type ChannelType string

const (
	ChannelTypePublic  ChannelType = "public"
	ChannelTypePrivate ChannelType = "private"
	ChannelTypeDirect  ChannelType = "direct"
)

func (t ChannelType) Valid() bool {
	switch t {
	case ChannelTypePublic, ChannelTypePrivate, ChannelTypeDirect:
		return true
	}
	return false
}

// Channel belongs to exactly one tenant. Direct channels have no name and
// exactly two members.
type Channel struct {
	ID         uint64      `gorm:"primarykey" json:"id"`
	TenantID   uint64      `gorm:"not null;index:idx_channels_tenant_name,priority:1" json:"tenant_id"`
	Name       string      `gorm:"type:varchar(100);not null;default:'';index:idx_channels_tenant_name,priority:2" json:"name"`
	Type       ChannelType `gorm:"type:varchar(20);not null" json:"type"`
	ReadOnly   bool        `gorm:"not null;default:false" json:"read_only"`
	CreatedBy  uint64      `gorm:"not null" json:"created_by"`
	IsArchived bool        `gorm:"not null;default:false" json:"is_archived"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`

	// Relations
	Members []ChannelMember `gorm:"foreignKey:ChannelID" json:"members,omitempty"`
}
