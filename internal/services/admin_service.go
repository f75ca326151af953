package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/yukikurage/collab-chat-api/internal/constants"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminService manages users, tenants and tenant memberships. Callers must
// hold the admin role; RequireAdmin enforces it at the HTTP boundary.
type AdminService struct {
	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepository
	txManager  repository.TxManager
	identity   *IdentityService
	log        *zap.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	txManager repository.TxManager,
	identity *IdentityService,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		txManager:  txManager,
		identity:   identity,
		log:        log,
	}
}

// CreateUserInput represents parameters to create a user.
type CreateUserInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        models.UserRole
	TenantID    *uint64
}

// CreateUser creates a user. Standard users must be created inside a tenant,
// which becomes their only and primary membership.
func (s *AdminService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if input.Role == "" {
		input.Role = models.RoleStandardUser
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if input.Role == models.RoleStandardUser && input.TenantID == nil {
		return nil, ErrTenantRequired
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	var member *models.TenantMembership
	if input.TenantID != nil {
		if _, err := s.findTenant(ctx, *input.TenantID); err != nil {
			return nil, err
		}
		member = &models.TenantMembership{
			TenantID:  *input.TenantID,
			IsPrimary: true,
			CreatedAt: time.Now().UTC(),
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		DisplayName:  displayName,
		Role:         input.Role,
		Status:       models.UserStatusActive,
	}

	if err := s.userRepo.CreateWithMembership(ctx, user, member); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("User created", zap.Uint64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// UpdateUserInput holds the optional changes to a user.
type UpdateUserInput struct {
	Role        *models.UserRole
	Status      *models.UserStatus
	DisplayName *string
}

// UpdateUser changes role, status or display name. Deactivating a user
// revokes all of their sessions; demoting to standard_user requires exactly
// one membership, which becomes primary.
func (s *AdminService) UpdateUser(ctx context.Context, userID uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// a demotion to standard pins the user's only tenant as primary
	var pinTenant *uint64
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, ErrInvalidRole
		}
		if *input.Role == models.RoleStandardUser && user.Role != models.RoleStandardUser {
			memberships, err := s.tenantRepo.ListMembershipsByUserID(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("failed to list memberships: %w", err)
			}
			if len(memberships) != 1 {
				return nil, ErrStandardUserTenant
			}
			pinTenant = &memberships[0].TenantID
		}
		user.Role = *input.Role
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		user.Status = *input.Status
	}

	if input.DisplayName != nil {
		if name := strings.TrimSpace(*input.DisplayName); name != "" {
			user.DisplayName = name
		}
	}

	err = s.txManager.Transaction(ctx, func(tx *gorm.DB) error {
		if pinTenant != nil {
			if err := s.tenantRepo.WithTx(tx).SetPrimary(ctx, userID, *pinTenant); err != nil {
				return fmt.Errorf("failed to set primary tenant: %w", err)
			}
		}
		if err := s.userRepo.WithTx(tx).Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !user.IsActive() {
		if err := s.identity.Revoke(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// CreateTenant creates an active tenant with a unique code.
func (s *AdminService) CreateTenant(ctx context.Context, code, name string) (*models.Tenant, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" || len(code) > 50 {
		return nil, ErrInvalidTenantCode
	}

	tenants, err := s.tenantRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	for _, t := range tenants {
		if strings.EqualFold(t.Code, code) {
			return nil, ErrTenantCodeTaken
		}
	}

	tenant := &models.Tenant{Code: code, Name: name, Status: models.TenantStatusActive}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.log.Info("Tenant created", zap.Uint64("tenant_id", tenant.ID), zap.String("code", tenant.Code))
	return tenant, nil
}

// AttachMember adds a user to a tenant. A standard user may only ever have
// one membership and it is always primary.
func (s *AdminService) AttachMember(ctx context.Context, tenantID, userID uint64, isPrimary bool) (*models.TenantMembership, error) {
	if _, err := s.findTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.tenantRepo.FindMembership(ctx, userID, tenantID); err == nil {
		return nil, ErrMembershipExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	single := user.Role == models.RoleStandardUser
	member := &models.TenantMembership{
		UserID:    userID,
		TenantID:  tenantID,
		IsPrimary: isPrimary || single,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.tenantRepo.AttachMember(ctx, member, single); err != nil {
		if errors.Is(err, repository.ErrMembershipLimit) {
			return nil, ErrStandardUserTenant
		}
		return nil, fmt.Errorf("failed to attach member: %w", err)
	}

	return member, nil
}

// DetachMember removes a user from a tenant. Sessions pointing at the tenant
// fail closed on their next request.
func (s *AdminService) DetachMember(ctx context.Context, tenantID, userID uint64) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleStandardUser {
		return ErrStandardUserTenant
	}

	if err := s.tenantRepo.DetachMember(ctx, userID, tenantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("failed to detach member: %w", err)
	}
	return nil
}

// EnsureAdmin creates the bootstrap administrator when no user owns email.
func (s *AdminService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	_, err := s.CreateUser(ctx, CreateUserInput{
		Email:       email,
		Password:    password,
		DisplayName: "admin",
		Role:        models.RoleAdmin,
	})
	return err
}

func (s *AdminService) findUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *AdminService) findTenant(ctx context.Context, id uint64) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}
	return tenant, nil
}
