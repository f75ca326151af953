package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/collab-chat-api/internal/database"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password123"

// serviceSuite wires every service on an in-memory SQLite database.
type serviceSuite struct {
	suite.Suite
	ctx context.Context
	db  *gorm.DB

	userRepo      repository.UserRepository
	tenantRepo    repository.TenantRepository
	sessionRepo   repository.SessionRepository
	channelRepo   repository.ChannelRepository
	messageRepo   repository.MessageRepository
	readStateRepo repository.ReadStateRepository
	txManager     repository.TxManager

	notifier   *Notifier
	identity   *IdentityService
	admin      *AdminService
	channels   *ChannelService
	readStates *ReadStateService
	messages   *MessageService
	polls      *PollService

	policy PublicWritePolicy
}

func (s *serviceSuite) SetupTest() {
	var err error
	s.ctx = context.Background()

	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(database.Migrate(s.db, zap.NewNop()))

	if s.policy == "" {
		s.policy = PublicWriteOpen
	}
	s.wire(s.policy)
}

func (s *serviceSuite) wire(policy PublicWritePolicy) {
	log := zap.NewNop()

	s.userRepo = repository.NewUserRepository(s.db)
	s.tenantRepo = repository.NewTenantRepository(s.db)
	s.sessionRepo = repository.NewSessionRepository(s.db)
	s.channelRepo = repository.NewChannelRepository(s.db)
	s.messageRepo = repository.NewMessageRepository(s.db)
	s.readStateRepo = repository.NewReadStateRepository(s.db)

	s.notifier = NewNotifier()
	s.identity = NewIdentityService(s.userRepo, s.tenantRepo, s.sessionRepo, IdentityConfig{
		SessionTTL:        time.Hour,
		TouchInterval:     time.Minute,
		MaxFailedAttempts: 3,
		LockoutWindow:     time.Minute,
	}, log)
	s.txManager = repository.NewTxManager(s.db)
	s.admin = NewAdminService(s.userRepo, s.tenantRepo, s.txManager, s.identity, log)
	s.channels = NewChannelService(s.channelRepo, s.tenantRepo, ChannelPolicy{PublicWrite: policy}, log)
	s.readStates = NewReadStateService(s.channels, s.channelRepo, s.readStateRepo)
	s.messages = NewMessageService(s.channels, s.readStates, s.messageRepo, s.txManager, s.notifier, log)
	s.polls = NewPollService(s.identity, s.channels, s.channelRepo, s.messageRepo, s.notifier, PollConfig{
		Interval:       50 * time.Millisecond,
		DefaultTimeout: time.Second,
		MaxTimeout:     5 * time.Second,
	}, log)
}

func (s *serviceSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *serviceSuite) createTenant(code string) *models.Tenant {
	tenant := &models.Tenant{Code: code, Name: code + " Inc.", Status: models.TenantStatusActive}
	s.Require().NoError(s.tenantRepo.Create(s.ctx, tenant))
	return tenant
}

// createUser creates an active user; the first tenant becomes primary.
func (s *serviceSuite) createUser(email, displayName string, role models.UserRole, tenants ...*models.Tenant) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	s.Require().NoError(err)

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
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

// login authenticates a user and returns the token with its principal.
func (s *serviceSuite) login(email string) (string, *Principal) {
	result, err := s.identity.Authenticate(s.ctx, AuthenticateInput{Email: email, Password: testPassword})
	s.Require().NoError(err)
	return result.Token, result.Principal
}

func (s *serviceSuite) principal(email string) *Principal {
	_, p := s.login(email)
	return p
}

func (s *serviceSuite) createChannel(p *Principal, name string, typ models.ChannelType, members ...uint64) *models.Channel {
	channel, err := s.channels.CreateChannel(s.ctx, p, CreateChannelInput{Name: name, Type: typ, Members: members})
	s.Require().NoError(err)
	return channel
}

func (s *serviceSuite) post(p *Principal, channelID uint64, content string) *models.Message {
	message, err := s.messages.Append(s.ctx, p, AppendInput{ChannelID: channelID, Content: content})
	s.Require().NoError(err)
	return message
}

func uint64Ptr(v uint64) *uint64 { return &v }
