package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/collab-chat-api/internal/errors"
	"github.com/yukikurage/collab-chat-api/internal/logger"
	"github.com/yukikurage/collab-chat-api/internal/middleware"
	"github.com/yukikurage/collab-chat-api/internal/services"
	"go.uber.org/zap"
)

// respondError translates a service error into the API error envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		apierrors.Unauthorized(c, "")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.RespondWithError(c, http.StatusUnauthorized,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, "Invalid email or password"))
	case errors.Is(err, services.ErrTooManyAttempts):
		apierrors.TooManyAttempts(c, "")
	case errors.Is(err, services.ErrForbiddenTenant):
		apierrors.ForbiddenTenant(c)
	case errors.Is(err, services.ErrForbiddenChannel):
		apierrors.ForbiddenChannel(c)
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrMembershipNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrTenantCodeTaken),
		errors.Is(err, services.ErrMembershipExists),
		errors.Is(err, services.ErrAlreadyMember):
		apierrors.Conflict(c, err.Error())
	case services.IsValidation(err):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTransientStore):
		logger.FromContext(c).Warn("Store unavailable", zap.Error(err))
		apierrors.ServiceUnavailable(c, "")
	default:
		logger.FromContext(c).Error("Request failed", zap.Error(err))
		apierrors.InternalError(c, "")
	}
}

// fieldError describes one failed binding rule
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// respondBindError writes a 400, listing the failed rules when the body
// parsed but did not validate.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	details := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	apierrors.BadRequestWithDetails(c, "Invalid request body", details)
}

// principal returns the authenticated principal or writes a 401.
func principal(c *gin.Context) (*services.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return p, ok
}

// parseIDParam parses a positive numeric path parameter or writes a 400.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
