package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/constants"
	"github.com/yukikurage/collab-chat-api/internal/dto"
	apierrors "github.com/yukikurage/collab-chat-api/internal/errors"
	"github.com/yukikurage/collab-chat-api/internal/middleware"
	"github.com/yukikurage/collab-chat-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	identity *services.IdentityService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity *services.IdentityService) *AuthHandler {
	return &AuthHandler{
		identity: identity,
	}
}

// Login authenticates a user and opens a session. The token is returned in
// the body and also kept in the session cookie for browser clients.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.identity.Authenticate(c.Request.Context(), services.AuthenticateInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if _, ok := c.Get(sessions.DefaultKey); ok {
		session := sessions.Default(c)
		session.Set(constants.SessionKeyToken, result.Token)
		if err := session.Save(); err != nil {
			apierrors.InternalError(c, "Failed to save session")
			return
		}
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:      result.Token,
		SessionDTO: dto.ToSessionDTO(result.Principal),
	})
}

// Logout destroys the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.identity.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		respondError(c, err)
		return
	}

	if _, ok := c.Get(sessions.DefaultKey); ok {
		session := sessions.Default(c)
		session.Clear()
		if err := session.Save(); err != nil {
			apierrors.InternalError(c, "Failed to logout")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user and session.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToSessionDTO(p))
}
