package models

import "time"

// Session is keyed by the SHA-256 of the opaque token handed to the client.
type Session struct {
	TokenHash      string    `gorm:"primarykey;type:varchar(64)" json:"token_hash"`
	UserID         uint64    `gorm:"not null;index" json:"user_id"`
	ActiveTenantID *uint64   `json:"active_tenant_id"`
	Role           UserRole  `gorm:"type:varchar(20);not null" json:"role"`
	TenantCode     string    `gorm:"type:varchar(50)" json:"tenant_code"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `gorm:"not null;index" json:"expires_at"`
	LastActivity   time.Time `json:"last_activity"`
}
