package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"gorm.io/gorm"
)

// GormSessionRepository stores sessions in the sessions table
type GormSessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a database-backed SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(ctx context.Context, session *models.Session) error {
	return write(r.db.WithContext(ctx).Create(session).Error)
}

func (r *GormSessionRepository) Find(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	err := read(func() error {
		return r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GormSessionRepository) SetActiveTenant(ctx context.Context, tokenHash string, tenantID *uint64, tenantCode string) error {
	return r.update(ctx, tokenHash, map[string]interface{}{
		"active_tenant_id": tenantID,
		"tenant_code":      tenantCode,
	})
}

func (r *GormSessionRepository) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	return r.update(ctx, tokenHash, map[string]interface{}{"last_activity": at})
}

// update is a single UPDATE statement so concurrent writers never lose each
// other's columns.
func (r *GormSessionRepository) update(ctx context.Context, tokenHash string, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("token_hash = ?", tokenHash).
		Updates(values)
	if result.Error != nil {
		return write(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *GormSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	return write(r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&models.Session{}).Error)
}

func (r *GormSessionRepository) DeleteByUserID(ctx context.Context, userID uint64) error {
	return write(r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error)
}
