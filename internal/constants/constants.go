package constants

import "time"

// Context keys
const (
	ContextKeyPrincipal = "principal"
	ContextKeyToken     = "session_token"
	ContextKeyLogger    = "logger"
	ContextKeyRequestID = "request_id"
	ContextKeyTenantID  = "tenant_id"
)

// Session cookie
const (
	SessionCookieName = "chat_session"
	SessionKeyToken   = "token"
)

// Headers
const (
	HeaderAuthorization = "Authorization"
	HeaderTenantID      = "X-Tenant-ID"
	HeaderRequestID     = "X-Request-ID"
	BearerPrefix        = "Bearer "
)

// Auth
const (
	MinPasswordLength = 8
	SessionTokenBytes = 32
)

// Messages
const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
	MaxMessageLength    = 4000
	MaxChannelNameLen   = 100
	DeletedPlaceholder  = "[message deleted]"
)

// Poll
const (
	DefaultPollTimeout  = 25 * time.Second
	MaxPollTimeout      = 60 * time.Second
	DefaultPollInterval = time.Second
	PollBatchSize       = 200
)
