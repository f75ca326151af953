package models

import "time"

type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

type Tenant struct {
	ID        uint64       `gorm:"primarykey" json:"id"`
	Code      string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Status    TenantStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// Relations
	Memberships []TenantMembership `gorm:"foreignKey:TenantID" json:"-"`
}
