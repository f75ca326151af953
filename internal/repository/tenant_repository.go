package repository

import (
	"context"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"gorm.io/gorm"
)

// GormTenantRepository is a GORM implementation of TenantRepository
type GormTenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &GormTenantRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormTenantRepository) WithTx(tx *gorm.DB) TenantRepository {
	return &GormTenantRepository{db: tx}
}

// Create creates a new tenant
func (r *GormTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	return write(r.db.WithContext(ctx).Create(tenant).Error)
}

// FindByID finds a tenant by ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uint64) (*models.Tenant, error) {
	var tenant models.Tenant
	err := read(func() error {
		return r.db.WithContext(ctx).First(&tenant, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// List lists every tenant ordered by code
func (r *GormTenantRepository) List(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := read(func() error {
		return r.db.WithContext(ctx).Order("code ASC").Find(&tenants).Error
	})
	return tenants, err
}

// AttachMember adds a user to a tenant
func (r *GormTenantRepository) AttachMember(ctx context.Context, member *models.TenantMembership, single bool) error {
	return write(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if single {
			var count int64
			if err := tx.Model(&models.TenantMembership{}).
				Where("user_id = ?", member.UserID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrMembershipLimit
			}
		}

		if member.IsPrimary {
			if err := clearPrimary(tx, member.UserID); err != nil {
				return err
			}
		}

		return tx.Create(member).Error
	}))
}

// DetachMember removes a user from a tenant
func (r *GormTenantRepository) DetachMember(ctx context.Context, userID, tenantID uint64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Delete(&models.TenantMembership{})
	if result.Error != nil {
		return write(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetPrimary makes one membership the user's primary
func (r *GormTenantRepository) SetPrimary(ctx context.Context, userID, tenantID uint64) error {
	return write(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearPrimary(tx, userID); err != nil {
			return err
		}
		result := tx.Model(&models.TenantMembership{}).
			Where("user_id = ? AND tenant_id = ?", userID, tenantID).
			Update("is_primary", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}))
}

func clearPrimary(tx *gorm.DB, userID uint64) error {
	return tx.Model(&models.TenantMembership{}).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Update("is_primary", false).Error
}

// FindMembership finds a specific tenant membership
func (r *GormTenantRepository) FindMembership(ctx context.Context, userID, tenantID uint64) (*models.TenantMembership, error) {
	var member models.TenantMembership
	err := read(func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ? AND tenant_id = ?", userID, tenantID).
			First(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindPrimaryMembership finds the user's primary membership with its tenant
func (r *GormTenantRepository) FindPrimaryMembership(ctx context.Context, userID uint64) (*models.TenantMembership, error) {
	var member models.TenantMembership
	err := read(func() error {
		return r.db.WithContext(ctx).
			Preload("Tenant").
			Where("user_id = ? AND is_primary = ?", userID, true).
			First(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembershipsByUserID lists all tenants a user is a member of
func (r *GormTenantRepository) ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.TenantMembership, error) {
	var memberships []models.TenantMembership
	err := read(func() error {
		return r.db.WithContext(ctx).
			Preload("Tenant").
			Where("user_id = ?", userID).
			Order("tenant_id ASC").
			Find(&memberships).Error
	})
	return memberships, err
}

// CountMembers counts how many of the given user IDs belong to the tenant
func (r *GormTenantRepository) CountMembers(ctx context.Context, tenantID uint64, userIDs []uint64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	var count int64
	err := read(func() error {
		return r.db.WithContext(ctx).Model(&models.User{}).
			Joins("JOIN tenant_memberships ON users.id = tenant_memberships.user_id").
			Where("tenant_memberships.tenant_id = ? AND users.id IN ?", tenantID, userIDs).
			Count(&count).Error
	})
	return count, err
}
