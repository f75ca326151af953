package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/collab-chat-api/internal/constants"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Action is what a principal wants to do with a channel.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionManage Action = "manage"
)

// PublicWritePolicy decides who may post to a public channel.
type PublicWritePolicy string

const (
	// PublicWriteOpen lets any user of the tenant post to a public channel.
	PublicWriteOpen PublicWritePolicy = "open"
	// PublicWriteMembers requires joining the channel first.
	PublicWriteMembers PublicWritePolicy = "members"
)

// ChannelPolicy holds the tenant-wide channel rules.
type ChannelPolicy struct {
	PublicWrite PublicWritePolicy
}

// ChannelService is the channel membership registry and the only place
// channel-level authorization is decided.
type ChannelService struct {
	channelRepo repository.ChannelRepository
	tenantRepo  repository.TenantRepository
	policy      ChannelPolicy
	log         *zap.Logger
	now         func() time.Time
}

// NewChannelService creates a new ChannelService.
func NewChannelService(
	channelRepo repository.ChannelRepository,
	tenantRepo repository.TenantRepository,
	policy ChannelPolicy,
	log *zap.Logger,
) *ChannelService {
	if policy.PublicWrite == "" {
		policy.PublicWrite = PublicWriteOpen
	}
	return &ChannelService{
		channelRepo: channelRepo,
		tenantRepo:  tenantRepo,
		policy:      policy,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Authorize loads a channel of the principal's tenant and checks action
// against it. Channels that do not exist, belong to another tenant, or are
// not accessible all fail with ErrForbiddenChannel. The returned member is
// nil when the principal has no membership row.
func (s *ChannelService) Authorize(ctx context.Context, p *Principal, channelID uint64, action Action) (*models.Channel, *models.ChannelMember, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, nil, err
	}

	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrForbiddenChannel
		}
		return nil, nil, fmt.Errorf("failed to find channel: %w", err)
	}
	if channel.TenantID != tenantID {
		return nil, nil, ErrForbiddenChannel
	}

	member, err := s.channelRepo.FindMember(ctx, channelID, p.UserID())
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("failed to find channel member: %w", err)
		}
		member = nil
	}

	if !s.allows(channel, member, action) {
		return nil, nil, ErrForbiddenChannel
	}
	return channel, member, nil
}

// Can reports whether Authorize would succeed.
func (s *ChannelService) Can(ctx context.Context, p *Principal, channelID uint64, action Action) (bool, error) {
	_, _, err := s.Authorize(ctx, p, channelID, action)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbiddenChannel), errors.Is(err, ErrForbiddenTenant):
		return false, nil
	default:
		return false, err
	}
}

func (s *ChannelService) allows(channel *models.Channel, member *models.ChannelMember, action Action) bool {
	public := channel.Type == models.ChannelTypePublic

	switch action {
	case ActionRead:
		return public || member != nil
	case ActionWrite:
		if channel.IsArchived {
			return false
		}
		if channel.ReadOnly {
			return member != nil && member.Role.CanManage()
		}
		if member != nil {
			return true
		}
		return public && s.policy.PublicWrite == PublicWriteOpen
	case ActionManage:
		return member != nil && member.Role.CanManage()
	}
	return false
}

// ListChannels lists the unarchived channels of the scoped tenant that are
// public or joined by the principal.
func (s *ChannelService) ListChannels(ctx context.Context, p *Principal) ([]models.Channel, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}

	channels, err := s.channelRepo.ListVisible(ctx, tenantID, p.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// CreateChannelInput represents parameters to create a channel.
type CreateChannelInput struct {
	Name     string
	Type     models.ChannelType
	Members  []uint64
	ReadOnly bool
}

// CreateChannel creates a channel in the principal's tenant with the creator
// as owner. A direct channel has no name and exactly one other member, both
// owners; asking for an existing pair returns the existing channel.
func (s *ChannelService) CreateChannel(ctx context.Context, p *Principal, input CreateChannelInput) (*models.Channel, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, ErrInvalidChannelType
	}

	others := make([]uint64, 0, len(input.Members))
	seen := map[uint64]bool{p.UserID(): true}
	for _, id := range input.Members {
		if id == 0 {
			return nil, ErrInvalidMembers
		}
		if !seen[id] {
			seen[id] = true
			others = append(others, id)
		}
	}

	name := strings.TrimSpace(input.Name)
	if input.Type == models.ChannelTypeDirect {
		if name != "" {
			return nil, ErrInvalidChannelName
		}
		if len(others) != 1 {
			return nil, ErrDirectChannelMembers
		}
	} else if err := validateChannelName(name); err != nil {
		return nil, err
	}

	if len(others) > 0 {
		count, err := s.tenantRepo.CountMembers(ctx, tenantID, others)
		if err != nil {
			return nil, fmt.Errorf("failed to verify members: %w", err)
		}
		if count != int64(len(others)) {
			return nil, ErrInvalidMembers
		}
	}

	if input.Type == models.ChannelTypeDirect {
		existing, err := s.channelRepo.FindDirect(ctx, tenantID, p.UserID(), others[0])
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find direct channel: %w", err)
		}
	}

	now := s.now()
	otherRole := models.ChannelRoleMember
	if input.Type == models.ChannelTypeDirect {
		otherRole = models.ChannelRoleOwner
	}

	members := make([]models.ChannelMember, 0, len(others)+1)
	members = append(members, newChannelMember(p.UserID(), models.ChannelRoleOwner, now))
	for _, id := range others {
		members = append(members, newChannelMember(id, otherRole, now))
	}

	channel := &models.Channel{
		TenantID:  tenantID,
		Name:      name,
		Type:      input.Type,
		ReadOnly:  input.ReadOnly && input.Type != models.ChannelTypeDirect,
		CreatedBy: p.UserID(),
	}
	if err := s.channelRepo.Create(ctx, channel, members); err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	s.log.Info("Channel created",
		zap.Uint64("channel_id", channel.ID),
		zap.Uint64("tenant_id", tenantID),
		zap.String("type", string(channel.Type)),
	)
	return channel, nil
}

func newChannelMember(userID uint64, role models.ChannelRole, now time.Time) models.ChannelMember {
	return models.ChannelMember{
		UserID:                 userID,
		Role:                   role,
		NotificationPreference: models.NotifyAll,
		JoinedAt:               now,
	}
}

func validateChannelName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > constants.MaxChannelNameLen {
		return ErrInvalidChannelName
	}
	return nil
}

// JoinChannel adds the principal to a public channel.
func (s *ChannelService) JoinChannel(ctx context.Context, p *Principal, channelID uint64) (*models.ChannelMember, error) {
	channel, member, err := s.Authorize(ctx, p, channelID, ActionRead)
	if err != nil {
		return nil, err
	}
	if channel.Type != models.ChannelTypePublic {
		return nil, ErrNotPublicChannel
	}
	if channel.IsArchived {
		return nil, ErrChannelArchived
	}
	if member != nil {
		return nil, ErrAlreadyMember
	}

	joined := newChannelMember(p.UserID(), models.ChannelRoleMember, s.now())
	joined.ChannelID = channelID
	if err := s.channelRepo.AddMember(ctx, &joined); err != nil {
		return nil, fmt.Errorf("failed to join channel: %w", err)
	}
	return &joined, nil
}

// LeaveChannel removes the principal from a channel. The last owner cannot
// leave.
func (s *ChannelService) LeaveChannel(ctx context.Context, p *Principal, channelID uint64) error {
	channel, member, err := s.Authorize(ctx, p, channelID, ActionRead)
	if err != nil {
		return err
	}
	if channel.Type == models.ChannelTypeDirect {
		return ErrDirectChannelRoster
	}
	if member == nil {
		return ErrNotChannelMember
	}
	return s.removeMember(ctx, channelID, member)
}

// AddMember adds a tenant user to a channel. Requires manage.
func (s *ChannelService) AddMember(ctx context.Context, p *Principal, channelID, userID uint64, role models.ChannelRole) (*models.ChannelMember, error) {
	channel, _, err := s.Authorize(ctx, p, channelID, ActionManage)
	if err != nil {
		return nil, err
	}
	if channel.Type == models.ChannelTypeDirect {
		return nil, ErrDirectChannelRoster
	}
	if channel.IsArchived {
		return nil, ErrChannelArchived
	}
	if role == "" {
		role = models.ChannelRoleMember
	}
	if !role.Valid() {
		return nil, ErrInvalidChannelRole
	}

	count, err := s.tenantRepo.CountMembers(ctx, channel.TenantID, []uint64{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify member: %w", err)
	}
	if count != 1 {
		return nil, ErrInvalidMembers
	}

	if _, err := s.channelRepo.FindMember(ctx, channelID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find channel member: %w", err)
	}

	member := newChannelMember(userID, role, s.now())
	member.ChannelID = channelID
	if err := s.channelRepo.AddMember(ctx, &member); err != nil {
		return nil, fmt.Errorf("failed to add channel member: %w", err)
	}
	return &member, nil
}

// RemoveMember removes a user from a channel. Requires manage; the last
// owner cannot be removed.
func (s *ChannelService) RemoveMember(ctx context.Context, p *Principal, channelID, userID uint64) error {
	channel, _, err := s.Authorize(ctx, p, channelID, ActionManage)
	if err != nil {
		return err
	}
	if channel.Type == models.ChannelTypeDirect {
		return ErrDirectChannelRoster
	}

	member, err := s.channelRepo.FindMember(ctx, channelID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotChannelMember
		}
		return fmt.Errorf("failed to find channel member: %w", err)
	}
	return s.removeMember(ctx, channelID, member)
}

func (s *ChannelService) removeMember(ctx context.Context, channelID uint64, member *models.ChannelMember) error {
	if member.Role == models.ChannelRoleOwner {
		owners, err := s.channelRepo.CountOwners(ctx, channelID)
		if err != nil {
			return fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}

	if err := s.channelRepo.RemoveMember(ctx, channelID, member.UserID); err != nil {
		return fmt.Errorf("failed to remove channel member: %w", err)
	}
	return nil
}

// ListMembers lists a readable channel's members.
func (s *ChannelService) ListMembers(ctx context.Context, p *Principal, channelID uint64) ([]models.ChannelMember, error) {
	if _, _, err := s.Authorize(ctx, p, channelID, ActionRead); err != nil {
		return nil, err
	}

	members, err := s.channelRepo.ListMembers(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel members: %w", err)
	}
	return members, nil
}

// RenameChannel renames a public or private channel. Requires manage.
func (s *ChannelService) RenameChannel(ctx context.Context, p *Principal, channelID uint64, name string) (*models.Channel, error) {
	channel, _, err := s.Authorize(ctx, p, channelID, ActionManage)
	if err != nil {
		return nil, err
	}
	if channel.Type == models.ChannelTypeDirect {
		return nil, ErrInvalidChannelName
	}

	name = strings.TrimSpace(name)
	if err := validateChannelName(name); err != nil {
		return nil, err
	}

	channel.Name = name
	if err := s.channelRepo.Update(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to rename channel: %w", err)
	}
	return channel, nil
}

// ArchiveChannel archives a channel. Its history stays readable; writes are
// rejected from then on. Requires manage.
func (s *ChannelService) ArchiveChannel(ctx context.Context, p *Principal, channelID uint64) (*models.Channel, error) {
	channel, _, err := s.Authorize(ctx, p, channelID, ActionManage)
	if err != nil {
		return nil, err
	}
	if channel.IsArchived {
		return channel, nil
	}

	channel.IsArchived = true
	if err := s.channelRepo.Update(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to archive channel: %w", err)
	}

	s.log.Info("Channel archived", zap.Uint64("channel_id", channel.ID), zap.Uint64("user_id", p.UserID()))
	return channel, nil
}

// PreferencesInput holds the principal's notification settings for a channel.
type PreferencesInput struct {
	NotificationPreference models.NotificationPreference
	MutedUntil             *time.Time
}

// UpdatePreferences changes the principal's own notification preference and
// mute window.
func (s *ChannelService) UpdatePreferences(ctx context.Context, p *Principal, channelID uint64, input PreferencesInput) error {
	_, member, err := s.Authorize(ctx, p, channelID, ActionRead)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotChannelMember
	}
	if !input.NotificationPreference.Valid() {
		return ErrInvalidPreference
	}

	if err := s.channelRepo.UpdateMemberPreferences(ctx, channelID, p.UserID(), input.NotificationPreference, input.MutedUntil); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotChannelMember
		}
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	return nil
}
