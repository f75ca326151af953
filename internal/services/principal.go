package services

import (
	"time"

	"github.com/yukikurage/collab-chat-api/internal/models"
)

// Principal is the resolved identity of one request. It is built by
// IdentityService.Resolve and passed explicitly to every service call.
type Principal struct {
	TokenHash      string
	User           models.User
	Role           models.UserRole
	ActiveTenantID *uint64
	TenantCode     string
	ExpiresAt      time.Time

	// explicit scope taken from the request, honoured for admins only
	requestedTenantID *uint64
}

func (p *Principal) UserID() uint64 {
	return p.User.ID
}

func (p *Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// WithRequestedTenant returns a copy scoped to an explicitly requested tenant.
func (p *Principal) WithRequestedTenant(tenantID *uint64) *Principal {
	cp := *p
	cp.requestedTenantID = tenantID
	return &cp
}

// TenantID is the single tenant-scoping rule. Non-admins are always scoped
// to their active tenant and may not ask for another one. Admins are scoped
// to the tenant they ask for, or their active tenant; never to all tenants.
func (p *Principal) TenantID() (uint64, error) {
	if p.IsAdmin() {
		if p.requestedTenantID != nil {
			return *p.requestedTenantID, nil
		}
		if p.ActiveTenantID != nil {
			return *p.ActiveTenantID, nil
		}
		return 0, ErrForbiddenTenant
	}

	if p.ActiveTenantID == nil {
		return 0, ErrForbiddenTenant
	}
	if p.requestedTenantID != nil && *p.requestedTenantID != *p.ActiveTenantID {
		return 0, ErrForbiddenTenant
	}
	return *p.ActiveTenantID, nil
}

// RequestedTenantID returns the explicitly requested tenant, if any.
func (p *Principal) RequestedTenantID() *uint64 {
	return p.requestedTenantID
}
