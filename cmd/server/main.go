package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/config"
	"github.com/yukikurage/collab-chat-api/internal/constants"
	"github.com/yukikurage/collab-chat-api/internal/database"
	"github.com/yukikurage/collab-chat-api/internal/handlers"
	"github.com/yukikurage/collab-chat-api/internal/logger"
	"github.com/yukikurage/collab-chat-api/internal/metrics"
	"github.com/yukikurage/collab-chat-api/internal/middleware"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"github.com/yukikurage/collab-chat-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Environment: cfg.Env,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("Starting server", cfg.LogFields()...)

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db, zlog); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Session store
	var sessionRepo repository.SessionRepository
	switch cfg.Session.Backend {
	case "redis":
		redisSessions, err := repository.NewRedisSessionRepository(cfg.Redis.URL)
		if err != nil {
			zlog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisSessions.Close()
		checks["redis"] = redisSessions.Ping
		sessionRepo = redisSessions
	default:
		sessionRepo = repository.NewSessionRepository(db)
	}

	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	readStateRepo := repository.NewReadStateRepository(db)
	txManager := repository.NewTxManager(db)

	notifier := services.NewNotifier()
	identity := services.NewIdentityService(userRepo, tenantRepo, sessionRepo, services.IdentityConfig{
		SessionTTL:        cfg.Session.TTL,
		TouchInterval:     cfg.Session.TouchInterval,
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		LockoutWindow:     cfg.Auth.LockoutWindow,
	}, zlog)
	admin := services.NewAdminService(userRepo, tenantRepo, txManager, identity, zlog)
	channels := services.NewChannelService(channelRepo, tenantRepo, services.ChannelPolicy{
		PublicWrite: services.PublicWritePolicy(cfg.Chat.PublicWritePolicy),
	}, zlog)
	readStates := services.NewReadStateService(channels, channelRepo, readStateRepo)
	messages := services.NewMessageService(channels, readStates, messageRepo, txManager, notifier, zlog)
	polls := services.NewPollService(identity, channels, channelRepo, messageRepo, notifier, services.PollConfig{
		Interval:       cfg.Poll.Interval,
		DefaultTimeout: cfg.Poll.DefaultTimeout,
		MaxTimeout:     cfg.Poll.MaxTimeout,
	}, zlog)

	if err := admin.EnsureAdmin(context.Background(), cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		zlog.Fatal("Failed to seed administrator", zap.Error(err))
	}

	metrics.Register()

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), logger.Middleware(zlog), metrics.Middleware())

	// Cookie sessions carry only the opaque token; the session itself lives
	// in the session store
	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	handlers.RegisterRoutes(r, handlers.Services{
		Identity:   identity,
		Admin:      admin,
		Channels:   channels,
		Messages:   messages,
		ReadStates: readStates,
		Polls:      polls,
	}, handlers.NewHealthHandler(checks))

	// Long polls hold the connection for up to the poll timeout
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Poll.MaxTimeout + 15*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		zlog.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Poll.MaxTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
}
