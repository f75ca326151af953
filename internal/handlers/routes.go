package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/metrics"
	"github.com/yukikurage/collab-chat-api/internal/middleware"
	"github.com/yukikurage/collab-chat-api/internal/services"
)

// Services are the dependencies the HTTP layer is built from.
type Services struct {
	Identity   *services.IdentityService
	Admin      *services.AdminService
	Channels   *services.ChannelService
	Messages   *services.MessageService
	ReadStates *services.ReadStateService
	Polls      *services.PollService
}

// RegisterRoutes mounts every API route on r.
func RegisterRoutes(r *gin.Engine, svc Services, health *HealthHandler) {
	authHandler := NewAuthHandler(svc.Identity)
	tenantHandler := NewTenantHandler(svc.Identity)
	channelHandler := NewChannelHandler(svc.Channels)
	messageHandler := NewMessageHandler(svc.Messages)
	readStateHandler := NewReadStateHandler(svc.ReadStates)
	pollHandler := NewPollHandler(svc.Polls)
	adminHandler := NewAdminHandler(svc.Admin)

	if health != nil {
		r.GET("/health", health.Health)
	}
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	requireAuth := middleware.RequireAuth(svc.Identity)

	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		// Tenant routes (protected)
		api.GET("/tenants", requireAuth, tenantHandler.ListTenants)
		api.POST("/tenant/switch", requireAuth, tenantHandler.SwitchTenant)

		// Tenant-scoped routes (protected)
		scoped := api.Group("")
		scoped.Use(requireAuth, middleware.RequireTenantScope())
		{
			channels := scoped.Group("/channels")
			{
				channels.GET("", channelHandler.ListChannels)
				channels.POST("", channelHandler.CreateChannel)
				channels.PATCH("/:id", channelHandler.RenameChannel)
				channels.POST("/:id/archive", channelHandler.ArchiveChannel)
				channels.POST("/:id/join", channelHandler.JoinChannel)
				channels.POST("/:id/leave", channelHandler.LeaveChannel)
				channels.GET("/:id/members", channelHandler.ListMembers)
				channels.POST("/:id/members", channelHandler.AddMember)
				channels.DELETE("/:id/members/:user_id", channelHandler.RemoveMember)
				channels.PUT("/:id/preferences", channelHandler.UpdatePreferences)
			}

			messages := scoped.Group("/messages")
			{
				messages.GET("", messageHandler.ListMessages)
				messages.POST("", messageHandler.PostMessage)
				messages.POST("/read", readStateHandler.MarkRead)
				messages.PATCH("/:id", messageHandler.EditMessage)
				messages.DELETE("/:id", messageHandler.DeleteMessage)
				messages.GET("/:id/thread", messageHandler.GetThread)
			}

			scoped.GET("/chat/poll", pollHandler.Poll)
			scoped.GET("/unread-summary", readStateHandler.UnreadSummary)
		}

		// Admin routes (protected)
		admin := api.Group("/admin")
		admin.Use(requireAuth, middleware.RequireAdmin())
		{
			admin.POST("/users", adminHandler.CreateUser)
			admin.PATCH("/users/:id", adminHandler.UpdateUser)
			admin.POST("/tenants", adminHandler.CreateTenant)
			admin.POST("/tenants/:id/members", adminHandler.AttachMember)
			admin.DELETE("/tenants/:id/members/:user_id", adminHandler.DetachMember)
		}
	}
}
