package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/constants"
	apierrors "github.com/yukikurage/collab-chat-api/internal/errors"
)

// RequireTenantScope rejects the request unless the principal resolves to
// exactly one tenant, and stores that tenant id for handlers.
func RequireTenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		tenantID, err := p.TenantID()
		if err != nil {
			apierrors.ForbiddenTenant(c)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTenantID, tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the scoped tenant id from context
func GetTenantID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(constants.ContextKeyTenantID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
