package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/collab-chat-api/internal/constants"
	"github.com/yukikurage/collab-chat-api/internal/database"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"github.com/yukikurage/collab-chat-api/internal/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password123"

// routerSuite serves the full route table over an in-memory SQLite database.
type routerSuite struct {
	suite.Suite
	ctx    context.Context
	db     *gorm.DB
	router *gin.Engine

	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepository
}

func (s *routerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctx = context.Background()

	var err error
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	log := zap.NewNop()
	s.Require().NoError(database.Migrate(s.db, log))

	s.userRepo = repository.NewUserRepository(s.db)
	s.tenantRepo = repository.NewTenantRepository(s.db)
	channelRepo := repository.NewChannelRepository(s.db)
	messageRepo := repository.NewMessageRepository(s.db)
	txManager := repository.NewTxManager(s.db)

	notifier := services.NewNotifier()
	identity := services.NewIdentityService(s.userRepo, s.tenantRepo, repository.NewSessionRepository(s.db), services.IdentityConfig{
		SessionTTL:    time.Hour,
		TouchInterval: time.Minute,
	}, log)
	channels := services.NewChannelService(channelRepo, s.tenantRepo, services.ChannelPolicy{PublicWrite: services.PublicWriteOpen}, log)
	readStates := services.NewReadStateService(channels, channelRepo, repository.NewReadStateRepository(s.db))

	s.router = gin.New()
	s.router.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	RegisterRoutes(s.router, Services{
		Identity:   identity,
		Admin:      services.NewAdminService(s.userRepo, s.tenantRepo, txManager, identity, log),
		Channels:   channels,
		Messages:   services.NewMessageService(channels, readStates, messageRepo, txManager, notifier, log),
		ReadStates: readStates,
		Polls: services.NewPollService(identity, channels, channelRepo, messageRepo, notifier, services.PollConfig{
			Interval:       50 * time.Millisecond,
			DefaultTimeout: time.Second,
			MaxTimeout:     5 * time.Second,
		}, log),
	}, NewHealthHandler(map[string]HealthCheck{
		"database": func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
	}))
}

func (s *routerSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *routerSuite) createTenant(code string) *models.Tenant {
	tenant := &models.Tenant{Code: code, Name: code, Status: models.TenantStatusActive}
	s.Require().NoError(s.tenantRepo.Create(s.ctx, tenant))
	return tenant
}

func (s *routerSuite) createUser(email string, role models.UserRole, tenants ...*models.Tenant) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	s.Require().NoError(err)

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  email,
		Role:         role,
		Status:       models.UserStatusActive,
	}
	s.Require().NoError(s.userRepo.Create(s.ctx, user))

	for i, t := range tenants {
		s.Require().NoError(s.tenantRepo.AttachMember(s.ctx, &models.TenantMembership{
			UserID:    user.ID,
			TenantID:  t.ID,
			IsPrimary: i == 0,
			CreatedAt: time.Now(),
		}, false))
	}
	return user
}

// do sends a JSON request; token may be empty.
func (s *routerSuite) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *routerSuite) login(email string) string {
	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": testPassword})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().NotEmpty(resp.Token)
	return resp.Token
}

func (s *routerSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *routerSuite) errorCode(w *httptest.ResponseRecorder) string {
	var resp struct {
		Code string `json:"code"`
	}
	s.decode(w, &resp)
	return resp.Code
}

func idPath(prefix string, id uint64, suffix string) string {
	return prefix + "/" + strconv.FormatUint(id, 10) + suffix
}
