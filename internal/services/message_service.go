package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/collab-chat-api/internal/constants"
	"github.com/yukikurage/collab-chat-api/internal/metrics"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"github.com/yukikurage/collab-chat-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageService is the append-only message log.
type MessageService struct {
	channels    *ChannelService
	readStates  *ReadStateService
	messageRepo repository.MessageRepository
	txManager   repository.TxManager
	notifier    *Notifier
	log         *zap.Logger
}

// NewMessageService creates a new MessageService.
func NewMessageService(
	channels *ChannelService,
	readStates *ReadStateService,
	messageRepo repository.MessageRepository,
	txManager repository.TxManager,
	notifier *Notifier,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		channels:    channels,
		readStates:  readStates,
		messageRepo: messageRepo,
		txManager:   txManager,
		notifier:    notifier,
		log:         log,
	}
}

// AppendInput represents parameters to post a message.
type AppendInput struct {
	ChannelID       uint64
	Content         string
	ParentMessageID *uint64
}

// Append posts a message. The insert and the recipients' unread counters
// commit together; pollers of the tenant are woken afterwards.
func (s *MessageService) Append(ctx context.Context, p *Principal, input AppendInput) (*models.Message, error) {
	channel, _, err := s.channels.Authorize(ctx, p, input.ChannelID, ActionWrite)
	if err != nil {
		return nil, err
	}

	content, err := validateContent(input.Content)
	if err != nil {
		return nil, err
	}

	if input.ParentMessageID != nil {
		parent, err := s.messageRepo.FindByID(ctx, *input.ParentMessageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidParent
			}
			return nil, fmt.Errorf("failed to find parent message: %w", err)
		}
		if parent.ChannelID != channel.ID || parent.IsDeleted {
			return nil, ErrInvalidParent
		}
	}

	message := &models.Message{
		TenantID:        channel.TenantID,
		ChannelID:       channel.ID,
		UserID:          p.UserID(),
		Content:         content,
		Type:            models.MessageTypeText,
		ParentMessageID: input.ParentMessageID,
	}

	err = s.txManager.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.messageRepo.WithTx(tx).Create(ctx, message); err != nil {
			return err
		}
		return s.readStates.OnMessageAppended(ctx, tx, message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	metrics.MessagesAppended.Inc()
	s.notifier.Publish(channel.TenantID)

	s.log.Debug("Message appended",
		zap.Uint64("message_id", message.ID),
		zap.Uint64("channel_id", message.ChannelID),
		zap.Uint64("user_id", message.UserID),
	)
	return message, nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > constants.MaxMessageLength {
		return "", ErrContentTooLong
	}
	return content, nil
}

// List returns a page of a channel's history, newest first. before is an
// exclusive id cursor; limit defaults to 50 and is capped at 200.
func (s *MessageService) List(ctx context.Context, p *Principal, channelID uint64, before *uint64, limit int) ([]models.Message, error) {
	if _, _, err := s.channels.Authorize(ctx, p, channelID, ActionRead); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.List(ctx, channelID, before, utils.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return redactAll(messages), nil
}

// Edit replaces the content of the principal's own message.
func (s *MessageService) Edit(ctx context.Context, p *Principal, messageID uint64, content string) (*models.Message, error) {
	message, err := s.findMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.channels.Authorize(ctx, p, message.ChannelID, ActionWrite); err != nil {
		return nil, err
	}
	if message.UserID != p.UserID() {
		return nil, ErrNotMessageAuthor
	}
	if message.IsDeleted {
		return nil, ErrMessageDeleted
	}

	content, err = validateContent(content)
	if err != nil {
		return nil, err
	}

	if err := s.messageRepo.UpdateContent(ctx, messageID, content); err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}

	message.Content = content
	message.IsEdited = true
	return message, nil
}

// Delete logically deletes a message. The author may delete their own
// messages; channel owners and admins may delete any.
func (s *MessageService) Delete(ctx context.Context, p *Principal, messageID uint64) error {
	message, err := s.findMessage(ctx, messageID)
	if err != nil {
		return err
	}

	_, member, err := s.channels.Authorize(ctx, p, message.ChannelID, ActionRead)
	if err != nil {
		return err
	}
	canManage := member != nil && member.Role.CanManage()
	if message.UserID != p.UserID() && !canManage {
		return ErrForbiddenChannel
	}
	if message.IsDeleted {
		return nil
	}

	if err := s.messageRepo.MarkDeleted(ctx, messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// Thread returns a parent message and its replies, oldest first.
func (s *MessageService) Thread(ctx context.Context, p *Principal, parentID uint64) (*models.Message, []models.Message, error) {
	parent, err := s.findMessage(ctx, parentID)
	if err != nil {
		return nil, nil, err
	}
	if _, _, err := s.channels.Authorize(ctx, p, parent.ChannelID, ActionRead); err != nil {
		return nil, nil, err
	}

	replies, err := s.messageRepo.ListReplies(ctx, parentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list replies: %w", err)
	}

	redacted := redact(*parent)
	return &redacted, redactAll(replies), nil
}

func (s *MessageService) findMessage(ctx context.Context, id uint64) (*models.Message, error) {
	if id == 0 {
		return nil, ErrInvalidMessageID
	}
	message, err := s.messageRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbiddenChannel
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return message, nil
}

// redact hides the content of a deleted message.
func redact(m models.Message) models.Message {
	if m.IsDeleted {
		m.Content = constants.DeletedPlaceholder
	}
	return m
}

func redactAll(messages []models.Message) []models.Message {
	out := make([]models.Message, len(messages))
	for i, m := range messages {
		out[i] = redact(m)
	}
	return out
}
