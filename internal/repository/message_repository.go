package repository

import (
	"context"

	"github.com/yukikurage/collab-chat-api/internal/database"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"gorm.io/gorm"
)

// GormMessageRepository is a GORM implementation of MessageRepository
type GormMessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &GormMessageRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *GormMessageRepository) WithTx(tx *gorm.DB) MessageRepository {
	return &GormMessageRepository{db: tx}
}

// Create appends a message
func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return write(r.db.WithContext(ctx).Create(message).Error)
}

// FindByID finds a message by ID
func (r *GormMessageRepository) FindByID(ctx context.Context, id uint64) (*models.Message, error) {
	var message models.Message
	err := read(func() error {
		return r.db.WithContext(ctx).First(&message, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// List returns a page of a channel's messages, newest first
func (r *GormMessageRepository) List(ctx context.Context, channelID uint64, before *uint64, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := read(func() error {
		return r.db.WithContext(ctx).
			Where("messages.channel_id = ?", channelID).
			Scopes(database.Before("messages", before)).
			Order("messages.id DESC").
			Limit(limit).
			Find(&messages).Error
	})
	return messages, err
}

// ListSince returns messages newer than sinceID across channels, oldest first
func (r *GormMessageRepository) ListSince(ctx context.Context, channelIDs []uint64, sinceID uint64, limit int) ([]models.Message, error) {
	if len(channelIDs) == 0 {
		return []models.Message{}, nil
	}

	var messages []models.Message
	err := read(func() error {
		return r.db.WithContext(ctx).
			Where("messages.channel_id IN ?", channelIDs).
			Scopes(database.After("messages", sinceID)).
			Order("messages.id ASC").
			Limit(limit).
			Find(&messages).Error
	})
	return messages, err
}

// ListReplies returns a thread's replies, oldest first
func (r *GormMessageRepository) ListReplies(ctx context.Context, parentID uint64) ([]models.Message, error) {
	var messages []models.Message
	err := read(func() error {
		return r.db.WithContext(ctx).
			Where("parent_message_id = ?", parentID).
			Order("id ASC").
			Find(&messages).Error
	})
	return messages, err
}

// UpdateContent replaces the content and flags the message as edited
func (r *GormMessageRepository) UpdateContent(ctx context.Context, id uint64, content string) error {
	return write(r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "is_edited": true}).Error)
}

// MarkDeleted logically deletes a message; the row and id stay
func (r *GormMessageRepository) MarkDeleted(ctx context.Context, id uint64) error {
	return write(r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error)
}
