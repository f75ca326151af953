package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"gorm.io/gorm"
)

// ReadStateService tracks, per user and channel, the last message read and
// the unread and mention counters.
type ReadStateService struct {
	channels      *ChannelService
	channelRepo   repository.ChannelRepository
	readStateRepo repository.ReadStateRepository
	now           func() time.Time
}

// NewReadStateService creates a new ReadStateService.
func NewReadStateService(
	channels *ChannelService,
	channelRepo repository.ChannelRepository,
	readStateRepo repository.ReadStateRepository,
) *ReadStateService {
	return &ReadStateService{
		channels:      channels,
		channelRepo:   channelRepo,
		readStateRepo: readStateRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// UnreadCounts is the unread state of one channel.
type UnreadCounts struct {
	Unread   int64 `json:"unread"`
	Mentions int64 `json:"mentions"`
}

// MarkRead moves the principal's read cursor of a channel forward to
// lastMessageID and clears its counters. A lower id never moves the cursor
// back, so the call is idempotent.
func (s *ReadStateService) MarkRead(ctx context.Context, p *Principal, channelID, lastMessageID uint64) error {
	if lastMessageID == 0 {
		return ErrInvalidMessageID
	}
	if _, _, err := s.channels.Authorize(ctx, p, channelID, ActionRead); err != nil {
		return err
	}

	if err := s.readStateRepo.MarkRead(ctx, p.UserID(), channelID, lastMessageID, s.now()); err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}
	return nil
}

// OnMessageAppended updates the counters of every recipient of message
// inside the append transaction tx. The author, muted members and members
// with notifications off are skipped.
func (s *ReadStateService) OnMessageAppended(ctx context.Context, tx *gorm.DB, message *models.Message) error {
	members, err := s.channelRepo.WithTx(tx).ListMembers(ctx, message.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to list recipients: %w", err)
	}

	now := s.now()
	recipients := make([]models.ChannelMember, 0, len(members))
	for _, m := range members {
		if m.UserID == message.UserID || m.IsMuted(now) || m.NotificationPreference == models.NotifyNone {
			continue
		}
		recipients = append(recipients, m)
	}
	if len(recipients) == 0 {
		return nil
	}

	mentioned := DetectMentions(message.Content, recipients)
	recipientIDs := make([]uint64, len(recipients))
	var mentionedIDs []uint64
	for i, m := range recipients {
		recipientIDs[i] = m.UserID
		if mentioned[m.UserID] {
			mentionedIDs = append(mentionedIDs, m.UserID)
		}
	}

	if err := s.readStateRepo.WithTx(tx).IncrementUnread(ctx, message.ChannelID, recipientIDs, mentionedIDs, now); err != nil {
		return fmt.Errorf("failed to update unread counters: %w", err)
	}
	return nil
}

// UnreadSummary returns the channels of the principal's tenant that have
// unread messages.
func (s *ReadStateService) UnreadSummary(ctx context.Context, p *Principal) (map[uint64]UnreadCounts, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}

	states, err := s.readStateRepo.ListUnread(ctx, p.UserID(), tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unread summary: %w", err)
	}

	summary := make(map[uint64]UnreadCounts, len(states))
	for _, st := range states {
		summary[st.ChannelID] = UnreadCounts{Unread: st.UnreadCount, Mentions: st.UnreadMentions}
	}
	return summary, nil
}
