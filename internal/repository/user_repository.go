package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateUser is returned when creating a user fails inside the registration transaction.
	ErrCreateUser = errors.New("user repository: create user failed")
	// ErrCreateMembership is returned when creating the tenant membership fails inside the registration transaction.
	ErrCreateMembership = errors.New("user repository: create tenant membership failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	return &GormUserRepository{db: tx}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	return write(r.db.WithContext(ctx).Create(user).Error)
}

// CreateWithMembership creates a user and its tenant membership atomically.
func (r *GormUserRepository) CreateWithMembership(ctx context.Context, user *models.User, member *models.TenantMembership) error {
	user.Email = normalizeEmail(user.Email)
	return write(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}

		if member == nil {
			return nil
		}
		member.UserID = user.ID

		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateMembership, err)
		}

		return nil
	}))
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	err := read(func() error {
		return r.db.WithContext(ctx).First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := read(func() error {
		return r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves a user
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return write(r.db.WithContext(ctx).Save(user).Error)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
