package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yukikurage/collab-chat-api/internal/metrics"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"github.com/yukikurage/collab-chat-api/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IdentityConfig tunes session lifetime and login throttling.
type IdentityConfig struct {
	SessionTTL        time.Duration
	TouchInterval     time.Duration
	MaxFailedAttempts int
	LockoutWindow     time.Duration
}

// IdentityService authenticates credentials, issues and resolves session
// tokens, and switches the active tenant of a session.
type IdentityService struct {
	userRepo    repository.UserRepository
	tenantRepo  repository.TenantRepository
	sessionRepo repository.SessionRepository
	throttle    *LoginThrottle
	cfg         IdentityConfig
	log         *zap.Logger
	now         func() time.Time
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	sessionRepo repository.SessionRepository,
	cfg IdentityConfig,
	log *zap.Logger,
) *IdentityService {
	if cfg.MaxFailedAttempts < 1 {
		cfg.MaxFailedAttempts = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	return &IdentityService{
		userRepo:    userRepo,
		tenantRepo:  tenantRepo,
		sessionRepo: sessionRepo,
		throttle:    NewLoginThrottle(cfg.MaxFailedAttempts, cfg.LockoutWindow),
		cfg:         cfg,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source (tests).
func (s *IdentityService) SetClock(now func() time.Time) {
	s.now = now
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareDummy spends the same bcrypt time for unknown emails as for known
// ones so response timing does not reveal which emails exist.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// AuthenticateInput holds the credentials for authentication.
type AuthenticateInput struct {
	Email    string
	Password string
}

// AuthResult is a freshly issued session. Token is only ever returned here.
type AuthResult struct {
	Token     string
	Principal *Principal
}

// Authenticate verifies credentials and opens a session on the user's
// primary tenant.
func (s *IdentityService) Authenticate(ctx context.Context, input AuthenticateInput) (*AuthResult, error) {
	now := s.now()
	if !s.throttle.Allowed(input.Email, now) {
		metrics.LoginCounter.WithLabelValues("throttled").Inc()
		return nil, ErrTooManyAttempts
	}

	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			compareDummy(input.Password)
			s.failLogin(input.Email, now)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.failLogin(input.Email, now)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		s.failLogin(input.Email, now)
		return nil, ErrInvalidCredentials
	}

	session := &models.Session{
		UserID:       user.ID,
		Role:         user.Role,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
		LastActivity: now,
	}

	if !user.IsAdmin() {
		primary, err := s.tenantRepo.FindPrimaryMembership(ctx, user.ID)
		switch {
		case err == nil:
			session.ActiveTenantID = &primary.TenantID
			session.TenantCode = primary.Tenant.Code
		case errors.Is(err, gorm.ErrRecordNotFound):
			// a special user without a primary tenant must switch first
		default:
			return nil, fmt.Errorf("failed to find primary tenant: %w", err)
		}
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	session.TokenHash = utils.HashToken(token)

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.throttle.Reset(input.Email)
	metrics.LoginCounter.WithLabelValues("success").Inc()
	s.log.Info("User authenticated", zap.Uint64("user_id", user.ID), zap.String("role", string(user.Role)))

	return &AuthResult{
		Token:     token,
		Principal: principalFrom(session, *user),
	}, nil
}

func (s *IdentityService) failLogin(email string, now time.Time) {
	s.throttle.Fail(email, now)
	metrics.LoginCounter.WithLabelValues("invalid").Inc()
}

func principalFrom(session *models.Session, user models.User) *Principal {
	return &Principal{
		TokenHash:      session.TokenHash,
		User:           user,
		Role:           user.Role,
		ActiveTenantID: session.ActiveTenantID,
		TenantCode:     session.TenantCode,
		ExpiresAt:      session.ExpiresAt,
	}
}

// Resolve turns a token into the principal of a request. Every failure is
// closed: unknown, expired or revoked tokens and inactive users are
// ErrUnauthenticated; an active tenant the user no longer belongs to is
// ErrForbiddenTenant.
func (s *IdentityService) Resolve(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	hash := utils.HashToken(token)

	session, err := s.sessionRepo.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := s.now()
	if !now.Before(session.ExpiresAt) {
		if err := s.sessionRepo.Delete(ctx, hash); err != nil {
			s.log.Warn("Failed to delete expired session", zap.Error(err))
		}
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive() {
		return nil, ErrUnauthenticated
	}

	// the role comes from the user row so a demotion applies immediately
	if !user.IsAdmin() && session.ActiveTenantID != nil {
		if _, err := s.tenantRepo.FindMembership(ctx, user.ID, *session.ActiveTenantID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrForbiddenTenant
			}
			return nil, fmt.Errorf("failed to verify tenant membership: %w", err)
		}
	}

	if now.Sub(session.LastActivity) >= s.cfg.TouchInterval {
		if err := s.sessionRepo.Touch(ctx, hash, now); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			s.log.Warn("Failed to record session activity", zap.Error(err))
		}
	}

	return principalFrom(session, *user), nil
}

// SwitchTenant moves the session to another tenant. Standard users are
// pinned to their tenant; special users may move to any tenant they belong
// to; admins to any active tenant. On failure the session is unchanged.
func (s *IdentityService) SwitchTenant(ctx context.Context, p *Principal, tenantID uint64) (*Principal, error) {
	if p.Role == models.RoleStandardUser {
		metrics.TenantSwitchCounter.WithLabelValues("forbidden").Inc()
		return nil, ErrForbiddenTenant
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.TenantSwitchCounter.WithLabelValues("forbidden").Inc()
			return nil, ErrForbiddenTenant
		}
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}
	if tenant.Status != models.TenantStatusActive {
		metrics.TenantSwitchCounter.WithLabelValues("forbidden").Inc()
		return nil, ErrForbiddenTenant
	}

	if !p.IsAdmin() {
		if _, err := s.tenantRepo.FindMembership(ctx, p.UserID(), tenantID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				metrics.TenantSwitchCounter.WithLabelValues("forbidden").Inc()
				return nil, ErrForbiddenTenant
			}
			return nil, fmt.Errorf("failed to verify tenant membership: %w", err)
		}
	}

	if err := s.sessionRepo.SetActiveTenant(ctx, p.TokenHash, &tenant.ID, tenant.Code); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to switch tenant: %w", err)
	}

	metrics.TenantSwitchCounter.WithLabelValues("success").Inc()
	s.log.Info("Tenant switched", zap.Uint64("user_id", p.UserID()), zap.Uint64("tenant_id", tenant.ID))

	// fresh principal: nothing cached for the previous tenant survives
	id := tenant.ID
	return &Principal{
		TokenHash:      p.TokenHash,
		User:           p.User,
		Role:           p.Role,
		ActiveTenantID: &id,
		TenantCode:     tenant.Code,
		ExpiresAt:      p.ExpiresAt,
	}, nil
}

// Logout destroys the session behind token.
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthenticated
	}
	if err := s.sessionRepo.Delete(ctx, utils.HashToken(token)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Revoke destroys every session of a user.
func (s *IdentityService) Revoke(ctx context.Context, userID uint64) error {
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	s.log.Info("Sessions revoked", zap.Uint64("user_id", userID))
	return nil
}

// TenantView is a tenant the principal can switch to.
type TenantView struct {
	Tenant    models.Tenant
	IsPrimary bool
	IsActive  bool
}

// ListTenants lists the tenants available to the principal: every tenant
// for admins, memberships otherwise.
func (s *IdentityService) ListTenants(ctx context.Context, p *Principal) ([]TenantView, error) {
	isActive := func(id uint64) bool {
		return p.ActiveTenantID != nil && *p.ActiveTenantID == id
	}

	if p.IsAdmin() {
		tenants, err := s.tenantRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tenants: %w", err)
		}
		views := make([]TenantView, len(tenants))
		for i, t := range tenants {
			views[i] = TenantView{Tenant: t, IsActive: isActive(t.ID)}
		}
		return views, nil
	}

	memberships, err := s.tenantRepo.ListMembershipsByUserID(ctx, p.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	views := make([]TenantView, len(memberships))
	for i, m := range memberships {
		views[i] = TenantView{Tenant: m.Tenant, IsPrimary: m.IsPrimary, IsActive: isActive(m.TenantID)}
	}
	return views, nil
}

// Scope applies the tenant-scoping rule to p with an optional explicit
// tenant taken from the request.
func (s *IdentityService) Scope(p *Principal, explicitTenantID *uint64) (uint64, error) {
	return p.WithRequestedTenant(explicitTenantID).TenantID()
}
