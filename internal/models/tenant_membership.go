package models

import "time"

// TenantMembership links a user to a tenant. A standard user has exactly one
// row and it is primary; a special user has any number, at most one primary.
type TenantMembership struct {
	UserID    uint64    `gorm:"primarykey" json:"user_id"`
	TenantID  uint64    `gorm:"primarykey;index" json:"tenant_id"`
	IsPrimary bool      `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"tenant,omitempty"`
}
