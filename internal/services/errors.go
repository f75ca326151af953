package services

import (
	"errors"

	"github.com/yukikurage/collab-chat-api/internal/repository"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrForbiddenTenant    = errors.New("tenant not accessible")
	// ErrForbiddenChannel is also returned for channels and messages that do
	// not exist or belong to another tenant.
	ErrForbiddenChannel = errors.New("channel not accessible")
	ErrForbidden        = errors.New("administrator role required")

	ErrTransientStore = repository.ErrTransientStore
)

// ValidationError reports malformed or inconsistent input.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func newValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

var (
	ErrEmptyContent         = newValidationError("message content cannot be empty")
	ErrContentTooLong       = newValidationError("message content is too long")
	ErrInvalidParent        = newValidationError("parent message must exist in the same channel")
	ErrInvalidMessageID     = newValidationError("message id must be positive")
	ErrMessageDeleted       = newValidationError("message has been deleted")
	ErrNotMessageAuthor     = newValidationError("only the author can edit a message")
	ErrInvalidChannelName   = newValidationError("channel name is required and must be at most 100 characters")
	ErrInvalidChannelType   = newValidationError("channel type must be public, private or direct")
	ErrInvalidChannelRole   = newValidationError("invalid channel role")
	ErrInvalidPreference    = newValidationError("invalid notification preference")
	ErrInvalidMembers       = newValidationError("members must belong to the tenant")
	ErrDirectChannelMembers = newValidationError("a direct channel needs exactly one other member")
	ErrDirectChannelRoster  = newValidationError("direct channel membership cannot change")
	ErrNotPublicChannel     = newValidationError("only public channels can be joined")
	ErrChannelArchived      = newValidationError("channel is archived")
	ErrAlreadyMember        = newValidationError("user is already a member of this channel")
	ErrNotChannelMember     = newValidationError("user is not a member of this channel")
	ErrLastOwner            = newValidationError("a channel must keep at least one owner")
	ErrInvalidEmail         = newValidationError("a valid email is required")
	ErrPasswordTooShort     = newValidationError("password too short")
	ErrEmailTaken           = newValidationError("email already registered")
	ErrInvalidRole          = newValidationError("invalid user role")
	ErrInvalidStatus        = newValidationError("invalid user status")
	ErrInvalidTenantCode    = newValidationError("tenant code and name are required")
	ErrTenantCodeTaken      = newValidationError("tenant code already exists")
	ErrTenantRequired       = newValidationError("standard users must be created in a tenant")
	ErrStandardUserTenant   = newValidationError("standard users belong to exactly one tenant")
	ErrMembershipExists     = newValidationError("user already belongs to this tenant")
	ErrUserNotFound         = newValidationError("user not found")
	ErrTenantNotFound       = newValidationError("tenant not found")
	ErrMembershipNotFound   = newValidationError("membership not found")
)
