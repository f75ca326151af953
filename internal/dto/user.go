package dto

import (
	"time"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64            `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name"`
	Role        models.UserRole   `json:"role"`
	Status      models.UserStatus `json:"status"`
}

// TenantDTO represents a tenant in API responses
type TenantDTO struct {
	ID     uint64              `json:"id"`
	Code   string              `json:"code"`
	Name   string              `json:"name"`
	Status models.TenantStatus `json:"status"`
}

// TenantWithStateDTO is a tenant as seen by the caller
type TenantWithStateDTO struct {
	TenantDTO
	IsPrimary bool `json:"is_primary"`
	IsActive  bool `json:"is_active"`
}

// TenantMembershipDTO represents a user's membership in a tenant
type TenantMembershipDTO struct {
	UserID    uint64    `json:"user_id"`
	TenantID  uint64    `json:"tenant_id"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionDTO describes the caller's session
type SessionDTO struct {
	User           UserDTO   `json:"user"`
	ActiveTenantID *uint64   `json:"active_tenant_id"`
	TenantCode     string    `json:"tenant_code,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// LoginResponse is returned once per login; the token is never shown again
type LoginResponse struct {
	Token string `json:"token"`
	SessionDTO
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Status:      user.Status,
	}
}

// ToTenantDTO converts a Tenant model to TenantDTO
func ToTenantDTO(tenant models.Tenant) TenantDTO {
	return TenantDTO{
		ID:     tenant.ID,
		Code:   tenant.Code,
		Name:   tenant.Name,
		Status: tenant.Status,
	}
}

func ToTenantWithStateDTOs(views []services.TenantView) []TenantWithStateDTO {
	out := make([]TenantWithStateDTO, len(views))
	for i, v := range views {
		out[i] = TenantWithStateDTO{
			TenantDTO: ToTenantDTO(v.Tenant),
			IsPrimary: v.IsPrimary,
			IsActive:  v.IsActive,
		}
	}
	return out
}

func ToTenantMembershipDTO(m models.TenantMembership) TenantMembershipDTO {
	return TenantMembershipDTO{
		UserID:    m.UserID,
		TenantID:  m.TenantID,
		IsPrimary: m.IsPrimary,
		CreatedAt: m.CreatedAt,
	}
}

// ToSessionDTO converts a principal to SessionDTO
func ToSessionDTO(p *services.Principal) SessionDTO {
	return SessionDTO{
		User:           ToUserDTO(p.User),
		ActiveTenantID: p.ActiveTenantID,
		TenantCode:     p.TenantCode,
		ExpiresAt:      p.ExpiresAt,
	}
}
