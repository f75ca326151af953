package repository

import (
	"context"
	"time"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReadStateRepository is a GORM implementation of ReadStateRepository.
// Every counter change is a single UPDATE on rows that were first ensured
// with an insert-or-ignore, never a read-modify-write.
type GormReadStateRepository struct {
	db *gorm.DB
}

// NewReadStateRepository creates a new ReadStateRepository
func NewReadStateRepository(db *gorm.DB) ReadStateRepository {
	return &GormReadStateRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *GormReadStateRepository) WithTx(tx *gorm.DB) ReadStateRepository {
	return &GormReadStateRepository{db: tx}
}

func (r *GormReadStateRepository) ensure(db *gorm.DB, channelID uint64, userIDs []uint64, at time.Time) error {
	rows := make([]models.ReadState, len(userIDs))
	for i, userID := range userIDs {
		rows[i] = models.ReadState{
			UserID:    userID,
			ChannelID: channelID,
			UpdatedAt: at,
		}
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// IncrementUnread bumps the counters of every recipient
func (r *GormReadStateRepository) IncrementUnread(ctx context.Context, channelID uint64, recipients, mentioned []uint64, at time.Time) error {
	if len(recipients) == 0 {
		return nil
	}

	db := r.db.WithContext(ctx)
	if err := r.ensure(db, channelID, recipients, at); err != nil {
		return write(err)
	}

	if err := db.Model(&models.ReadState{}).
		Where("channel_id = ? AND user_id IN ?", channelID, recipients).
		Updates(map[string]interface{}{
			"unread_count": gorm.Expr("unread_count + ?", 1),
			"updated_at":   at,
		}).Error; err != nil {
		return write(err)
	}

	if len(mentioned) == 0 {
		return nil
	}
	return write(db.Model(&models.ReadState{}).
		Where("channel_id = ? AND user_id IN ?", channelID, mentioned).
		Update("unread_mentions", gorm.Expr("unread_mentions + ?", 1)).Error)
}

// MarkRead advances the read cursor and clears the counters
func (r *GormReadStateRepository) MarkRead(ctx context.Context, userID, channelID, lastMessageID uint64, at time.Time) error {
	db := r.db.WithContext(ctx)
	if err := r.ensure(db, channelID, []uint64{userID}, at); err != nil {
		return write(err)
	}

	return write(db.Model(&models.ReadState{}).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		Updates(map[string]interface{}{
			"last_read_message_id": gorm.Expr(
				"CASE WHEN last_read_message_id < ? THEN ? ELSE last_read_message_id END",
				lastMessageID, lastMessageID,
			),
			"unread_count":    0,
			"unread_mentions": 0,
			"updated_at":      at,
		}).Error)
}

// Find finds the read state of a user in a channel
func (r *GormReadStateRepository) Find(ctx context.Context, userID, channelID uint64) (*models.ReadState, error) {
	var state models.ReadState
	err := read(func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ? AND channel_id = ?", userID, channelID).
			First(&state).Error
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// ListUnread lists read states with unread messages in channels of a tenant
func (r *GormReadStateRepository) ListUnread(ctx context.Context, userID, tenantID uint64) ([]models.ReadState, error) {
	var states []models.ReadState
	err := read(func() error {
		return r.db.WithContext(ctx).
			Joins("JOIN channels ON channels.id = read_states.channel_id").
			Where("read_states.user_id = ? AND read_states.unread_count > 0", userID).
			Where("channels.tenant_id = ?", tenantID).
			Order("read_states.channel_id ASC").
			Find(&states).Error
	})
	return states, err
}
