package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrSessionNotFound is returned when no live session matches a token hash.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMembershipLimit is returned when a single-tenant user already has a membership.
	ErrMembershipLimit = errors.New("user already belongs to a tenant")
)

// TxManager runs fn inside a database transaction.
type TxManager interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UserRepository is the credential store
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository

	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// CreateWithMembership creates a user and, when member is non-nil, its
	// tenant membership within a single transaction.
	CreateWithMembership(ctx context.Context, user *models.User, member *models.TenantMembership) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Update saves role, status and profile fields
	Update(ctx context.Context, user *models.User) error
}

// TenantRepository is the tenant store, including user memberships
type TenantRepository interface {
	WithTx(tx *gorm.DB) TenantRepository

	Create(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, id uint64) (*models.Tenant, error)
	List(ctx context.Context) ([]models.Tenant, error)

	// AttachMember inserts a membership. When single is set the insert fails
	// with ErrMembershipLimit if the user already has one. A primary
	// membership clears the flag on the user's other rows.
	AttachMember(ctx context.Context, member *models.TenantMembership, single bool) error

	// DetachMember removes a membership
	DetachMember(ctx context.Context, userID, tenantID uint64) error

	// SetPrimary marks one membership primary and clears the others
	SetPrimary(ctx context.Context, userID, tenantID uint64) error

	FindMembership(ctx context.Context, userID, tenantID uint64) (*models.TenantMembership, error)
	FindPrimaryMembership(ctx context.Context, userID uint64) (*models.TenantMembership, error)

	// ListMembershipsByUserID lists all tenants a user belongs to
	ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.TenantMembership, error)

	// CountMembers counts how many of the given user IDs belong to the tenant
	CountMembers(ctx context.Context, tenantID uint64, userIDs []uint64) (int64, error)
}

// SessionRepository is the session store
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, tokenHash string) (*models.Session, error)

	// SetActiveTenant overwrites the active tenant and its cached snapshot
	SetActiveTenant(ctx context.Context, tokenHash string, tenantID *uint64, tenantCode string) error

	// Touch records activity on a session
	Touch(ctx context.Context, tokenHash string, at time.Time) error

	Delete(ctx context.Context, tokenHash string) error

	// DeleteByUserID revokes every session of a user
	DeleteByUserID(ctx context.Context, userID uint64) error
}

// ChannelRepository is the channel membership registry store
type ChannelRepository interface {
	WithTx(tx *gorm.DB) ChannelRepository

	// Create inserts the channel and its initial members atomically
	Create(ctx context.Context, channel *models.Channel, members []models.ChannelMember) error

	FindByID(ctx context.Context, id uint64) (*models.Channel, error)
	Update(ctx context.Context, channel *models.Channel) error

	// FindDirect finds the direct channel shared by two users in a tenant
	FindDirect(ctx context.Context, tenantID, userA, userB uint64) (*models.Channel, error)

	// ListVisible lists unarchived channels of a tenant that are public or
	// joined by the user, ordered by name then id
	ListVisible(ctx context.Context, tenantID, userID uint64) ([]models.Channel, error)

	// ReadableIDs returns the ids of every channel the user may read in a tenant
	ReadableIDs(ctx context.Context, tenantID, userID uint64) ([]uint64, error)

	AddMember(ctx context.Context, member *models.ChannelMember) error
	RemoveMember(ctx context.Context, channelID, userID uint64) error
	FindMember(ctx context.Context, channelID, userID uint64) (*models.ChannelMember, error)

	// ListMembers lists members with their users preloaded
	ListMembers(ctx context.Context, channelID uint64) ([]models.ChannelMember, error)

	// CountOwners counts members with the owner role
	CountOwners(ctx context.Context, channelID uint64) (int64, error)

	UpdateMemberPreferences(ctx context.Context, channelID, userID uint64, pref models.NotificationPreference, mutedUntil *time.Time) error
}

// MessageRepository is the append-only message log
type MessageRepository interface {
	WithTx(tx *gorm.DB) MessageRepository

	// Create appends a message; the store assigns the next id
	Create(ctx context.Context, message *models.Message) error

	FindByID(ctx context.Context, id uint64) (*models.Message, error)

	// List returns up to limit messages of a channel, newest first, with ids
	// below before when it is set
	List(ctx context.Context, channelID uint64, before *uint64, limit int) ([]models.Message, error)

	// ListSince returns up to limit messages with id > sinceID across the
	// given channels, oldest first
	ListSince(ctx context.Context, channelIDs []uint64, sinceID uint64, limit int) ([]models.Message, error)

	// ListReplies returns the replies to a parent, oldest first
	ListReplies(ctx context.Context, parentID uint64) ([]models.Message, error)

	UpdateContent(ctx context.Context, id uint64, content string) error
	MarkDeleted(ctx context.Context, id uint64) error
}

// ReadStateRepository is the per (user, channel) read-state store
type ReadStateRepository interface {
	WithTx(tx *gorm.DB) ReadStateRepository

	// IncrementUnread bumps unread_count for recipients and unread_mentions
	// for the mentioned subset
	IncrementUnread(ctx context.Context, channelID uint64, recipients, mentioned []uint64, at time.Time) error

	// MarkRead moves last_read_message_id forward (never back) and clears
	// the counters
	MarkRead(ctx context.Context, userID, channelID, lastMessageID uint64, at time.Time) error

	Find(ctx context.Context, userID, channelID uint64) (*models.ReadState, error)

	// ListUnread lists a user's read states with unread messages in a tenant
	ListUnread(ctx context.Context, userID, tenantID uint64) ([]models.ReadState, error)
}
