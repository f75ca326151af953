package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/dto"
	"github.com/yukikurage/collab-chat-api/internal/services"
)

// TenantHandler lists and switches the caller's tenants.
type TenantHandler struct {
	identity *services.IdentityService
}

func NewTenantHandler(identity *services.IdentityService) *TenantHandler {
	return &TenantHandler{identity: identity}
}

// ListTenants returns the tenants the caller may switch to.
func (h *TenantHandler) ListTenants(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	views, err := h.identity.ListTenants(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenants": dto.ToTenantWithStateDTOs(views)})
}

// SwitchTenant changes the active tenant of the current session.
func (h *TenantHandler) SwitchTenant(c *gin.Context) {
	type SwitchRequest struct {
		TenantID uint64 `json:"tenant_id" binding:"required"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}

	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	switched, err := h.identity.SwitchTenant(c.Request.Context(), p, req.TenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionDTO(switched))
}
