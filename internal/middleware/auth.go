package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/constants"
	apierrors "github.com/yukikurage/collab-chat-api/internal/errors"
	"github.com/yukikurage/collab-chat-api/internal/logger"
	"github.com/yukikurage/collab-chat-api/internal/services"
	"go.uber.org/zap"
)

// RequireAuth resolves the request's session token into a principal. The
// token is read from the Authorization bearer header, falling back to the
// session cookie.
func RequireAuth(identity *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		requested, err := parseTenantHeader(c.GetHeader(constants.HeaderTenantID))
		if err != nil {
			apierrors.BadRequest(c, "Invalid X-Tenant-ID header")
			c.Abort()
			return
		}

		principal, err := identity.Resolve(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnauthenticated):
				apierrors.Unauthorized(c, "")
			case errors.Is(err, services.ErrForbiddenTenant):
				apierrors.ForbiddenTenant(c)
			case errors.Is(err, services.ErrTransientStore):
				apierrors.ServiceUnavailable(c, "")
			default:
				logger.FromContext(c).Error("Failed to resolve session", zap.Error(err))
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		// Store principal and token in context for handlers
		c.Set(constants.ContextKeyPrincipal, principal.WithRequestedTenant(requested))
		c.Set(constants.ContextKeyToken, token)
		c.Next()
	}
}

// TokenFromRequest returns the bearer token or the one stored in the
// session cookie.
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader(constants.HeaderAuthorization); strings.HasPrefix(header, constants.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, constants.BearerPrefix))
	}

	// sessions.Default panics when the sessions middleware is not installed
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	if token, ok := sessions.Default(c).Get(constants.SessionKeyToken).(string); ok {
		return token
	}
	return ""
}

func parseTenantHeader(raw string) (*uint64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, errors.New("invalid tenant id")
	}
	return &id, nil
}

// GetPrincipal retrieves the current principal from context
func GetPrincipal(c *gin.Context) (*services.Principal, bool) {
	v, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return nil, false
	}
	p, ok := v.(*services.Principal)
	return p, ok
}

// GetToken retrieves the raw session token from context
func GetToken(c *gin.Context) string {
	return c.GetString(constants.ContextKeyToken)
}

// RequireAdmin rejects principals without the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !p.IsAdmin() {
			apierrors.Forbidden(c, "Administrator role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
