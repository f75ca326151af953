package repository

import (
	"context"
	"time"

	"github.com/yukikurage/collab-chat-api/internal/database"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormChannelRepository is a GORM implementation of ChannelRepository
type GormChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &GormChannelRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *GormChannelRepository) WithTx(tx *gorm.DB) ChannelRepository {
	return &GormChannelRepository{db: tx}
}

// Create inserts the channel and its initial roster in one transaction
func (r *GormChannelRepository) Create(ctx context.Context, channel *models.Channel, members []models.ChannelMember) error {
	return write(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(channel).Error; err != nil {
			return err
		}

		if len(members) == 0 {
			return nil
		}
		for i := range members {
			members[i].ChannelID = channel.ID
		}
		return tx.Omit(clause.Associations).Create(&members).Error
	}))
}

// FindByID finds a channel by ID
func (r *GormChannelRepository) FindByID(ctx context.Context, id uint64) (*models.Channel, error) {
	var channel models.Channel
	err := read(func() error {
		return r.db.WithContext(ctx).First(&channel, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// Update saves name, archive and read-only flags
func (r *GormChannelRepository) Update(ctx context.Context, channel *models.Channel) error {
	return write(r.db.WithContext(ctx).Omit(clause.Associations).Save(channel).Error)
}

// FindDirect finds the direct channel whose two members are userA and userB
func (r *GormChannelRepository) FindDirect(ctx context.Context, tenantID, userA, userB uint64) (*models.Channel, error) {
	var channel models.Channel
	err := read(func() error {
		return r.db.WithContext(ctx).
			Scopes(database.TenantScoped("channels", tenantID)).
			Where("channels.type = ?", models.ChannelTypeDirect).
			Where("EXISTS (?)", r.memberExists(userA)).
			Where("EXISTS (?)", r.memberExists(userB)).
			Order("channels.id ASC").
			First(&channel).Error
	})
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *GormChannelRepository) memberExists(userID uint64) *gorm.DB {
	return r.db.Model(&models.ChannelMember{}).
		Select("1").
		Where("channel_members.channel_id = channels.id").
		Where("channel_members.user_id = ?", userID)
}

// visible restricts channels to public ones and those the user joined
func (r *GormChannelRepository) visible(ctx context.Context, tenantID, userID uint64) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Channel{}).
		Scopes(database.TenantScoped("channels", tenantID)).
		Where("channels.type = ? OR EXISTS (?)", models.ChannelTypePublic, r.memberExists(userID))
}

// ListVisible lists the channels a user can see in a tenant
func (r *GormChannelRepository) ListVisible(ctx context.Context, tenantID, userID uint64) ([]models.Channel, error) {
	var channels []models.Channel
	err := read(func() error {
		return r.visible(ctx, tenantID, userID).
			Where("channels.is_archived = ?", false).
			Order("channels.name ASC").
			Order("channels.id ASC").
			Find(&channels).Error
	})
	return channels, err
}

// ReadableIDs returns ids of every channel the user may read, archived included
func (r *GormChannelRepository) ReadableIDs(ctx context.Context, tenantID, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := read(func() error {
		ids = ids[:0]
		return r.visible(ctx, tenantID, userID).
			Order("channels.id ASC").
			Pluck("channels.id", &ids).Error
	})
	return ids, err
}

// AddMember adds a member to a channel
func (r *GormChannelRepository) AddMember(ctx context.Context, member *models.ChannelMember) error {
	return write(r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error)
}

// RemoveMember removes a member from a channel
func (r *GormChannelRepository) RemoveMember(ctx context.Context, channelID, userID uint64) error {
	return write(r.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&models.ChannelMember{}).Error)
}

// FindMember finds a specific channel member
func (r *GormChannelRepository) FindMember(ctx context.Context, channelID, userID uint64) (*models.ChannelMember, error) {
	var member models.ChannelMember
	err := read(func() error {
		return r.db.WithContext(ctx).
			Where("channel_id = ? AND user_id = ?", channelID, userID).
			First(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of a channel
func (r *GormChannelRepository) ListMembers(ctx context.Context, channelID uint64) ([]models.ChannelMember, error) {
	var members []models.ChannelMember
	err := read(func() error {
		return r.db.WithContext(ctx).
			Preload("User").
			Where("channel_id = ?", channelID).
			Order("user_id ASC").
			Find(&members).Error
	})
	return members, err
}

// CountOwners counts the owners of a channel
func (r *GormChannelRepository) CountOwners(ctx context.Context, channelID uint64) (int64, error) {
	var count int64
	err := read(func() error {
		return r.db.WithContext(ctx).Model(&models.ChannelMember{}).
			Where("channel_id = ? AND role = ?", channelID, models.ChannelRoleOwner).
			Count(&count).Error
	})
	return count, err
}

// UpdateMemberPreferences sets the notification preference and mute window
func (r *GormChannelRepository) UpdateMemberPreferences(ctx context.Context, channelID, userID uint64, pref models.NotificationPreference, mutedUntil *time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Updates(map[string]interface{}{
			"notification_preference": pref,
			"muted_until":             mutedUntil,
		})
	if result.Error != nil {
		return write(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
