package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/dto"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/services"
)

// AdminHandler serves user and tenant administration. Routes are guarded by
// middleware.RequireAdmin.
type AdminHandler struct {
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// CreateUser creates a user, optionally inside a tenant.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Email       string          `json:"email" binding:"required"`
		Password    string          `json:"password" binding:"required"`
		DisplayName string          `json:"display_name"`
		Role        models.UserRole `json:"role"`
		TenantID    *uint64         `json:"tenant_id"`
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.admin.CreateUser(c.Request.Context(), services.CreateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		TenantID:    req.TenantID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// UpdateUser changes a user's role, status or display name.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	type UpdateUserRequest struct {
		Role        *models.UserRole   `json:"role"`
		Status      *models.UserStatus `json:"status"`
		DisplayName *string            `json:"display_name"`
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.admin.UpdateUser(c.Request.Context(), userID, services.UpdateUserInput{
		Role:        req.Role,
		Status:      req.Status,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// CreateTenant creates a tenant.
func (h *AdminHandler) CreateTenant(c *gin.Context) {
	type CreateTenantRequest struct {
		Code string `json:"code" binding:"required"`
		Name string `json:"name" binding:"required"`
	}

	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tenant, err := h.admin.CreateTenant(c.Request.Context(), req.Code, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTenantDTO(*tenant))
}

// AttachMember adds a user to a tenant.
func (h *AdminHandler) AttachMember(c *gin.Context) {
	type AttachMemberRequest struct {
		UserID    uint64 `json:"user_id" binding:"required"`
		IsPrimary bool   `json:"is_primary"`
	}

	tenantID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AttachMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	member, err := h.admin.AttachMember(c.Request.Context(), tenantID, req.UserID, req.IsPrimary)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTenantMembershipDTO(*member))
}

// DetachMember removes a user from a tenant.
func (h *AdminHandler) DetachMember(c *gin.Context) {
	tenantID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.admin.DetachMember(c.Request.Context(), tenantID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
