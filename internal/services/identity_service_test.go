package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/utils"
)

type IdentityServiceTestSuite struct {
	serviceSuite
}

func TestIdentityService(t *testing.T) {
	suite.Run(t, new(IdentityServiceTestSuite))
}

func (s *IdentityServiceTestSuite) TestAuthenticate_StandardUserLandsOnPrimaryTenant() {
	acme := s.createTenant("acme")
	user := s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)

	token, p := s.login("ALICE@acme.test")

	s.Len(token, 64)
	s.Equal(user.ID, p.UserID())
	s.Require().NotNil(p.ActiveTenantID)
	s.Equal(acme.ID, *p.ActiveTenantID)
	s.Equal("acme", p.TenantCode)

	// only the hash is stored
	stored, err := s.sessionRepo.Find(s.ctx, utils.HashToken(token))
	s.Require().NoError(err)
	s.NotEqual(token, stored.TokenHash)
}

func (s *IdentityServiceTestSuite) TestAuthenticate_AdminHasNoActiveTenant() {
	s.createUser("root@collab.test", "root", models.RoleAdmin)

	_, p := s.login("root@collab.test")
	s.Nil(p.ActiveTenantID)
	s.True(p.IsAdmin())
}

func (s *IdentityServiceTestSuite) TestAuthenticate_Failures() {
	acme := s.createTenant("acme")
	s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)
	inactive := s.createUser("bob@acme.test", "bob", models.RoleStandardUser, acme)
	inactive.Status = models.UserStatusInactive
	s.Require().NoError(s.userRepo.Update(s.ctx, inactive))

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@acme.test", testPassword},
		{"wrong password", "alice@acme.test", "wrong-password"},
		{"inactive user", "bob@acme.test", testPassword},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.identity.Authenticate(s.ctx, AuthenticateInput{Email: tc.email, Password: tc.password})
			s.ErrorIs(err, ErrInvalidCredentials)
		})
	}
}

func (s *IdentityServiceTestSuite) TestAuthenticate_ThrottlesRepeatedFailures() {
	acme := s.createTenant("acme")
	s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)

	for i := 0; i < 3; i++ {
		_, err := s.identity.Authenticate(s.ctx, AuthenticateInput{Email: "alice@acme.test", Password: "nope"})
		s.ErrorIs(err, ErrInvalidCredentials)
	}

	_, err := s.identity.Authenticate(s.ctx, AuthenticateInput{Email: "alice@acme.test", Password: testPassword})
	s.ErrorIs(err, ErrTooManyAttempts)

	// the window passes
	s.identity.SetClock(func() time.Time { return time.Now().UTC().Add(2 * time.Minute) })
	_, err = s.identity.Authenticate(s.ctx, AuthenticateInput{Email: "alice@acme.test", Password: testPassword})
	s.NoError(err)
}

func (s *IdentityServiceTestSuite) TestResolve() {
	acme := s.createTenant("acme")
	user := s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)
	token, _ := s.login("alice@acme.test")

	p, err := s.identity.Resolve(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(user.ID, p.UserID())

	_, err = s.identity.Resolve(s.ctx, "")
	s.ErrorIs(err, ErrUnauthenticated)

	_, err = s.identity.Resolve(s.ctx, "deadbeef")
	s.ErrorIs(err, ErrUnauthenticated)
}

func (s *IdentityServiceTestSuite) TestResolve_ExpiredSession() {
	acme := s.createTenant("acme")
	s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)
	token, _ := s.login("alice@acme.test")

	s.identity.SetClock(func() time.Time { return time.Now().UTC().Add(2 * time.Hour) })
	_, err := s.identity.Resolve(s.ctx, token)
	s.ErrorIs(err, ErrUnauthenticated)

	// the expired row is gone
	_, err = s.sessionRepo.Find(s.ctx, utils.HashToken(token))
	s.Error(err)
}

func (s *IdentityServiceTestSuite) TestResolve_DeactivatedUser() {
	acme := s.createTenant("acme")
	user := s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)
	token, _ := s.login("alice@acme.test")

	user.Status = models.UserStatusInactive
	s.Require().NoError(s.userRepo.Update(s.ctx, user))

	_, err := s.identity.Resolve(s.ctx, token)
	s.ErrorIs(err, ErrUnauthenticated)
}

func (s *IdentityServiceTestSuite) TestResolve_MembershipRemovedFailsClosed() {
	acme := s.createTenant("acme")
	globex := s.createTenant("globex")
	user := s.createUser("sam@collab.test", "sam", models.RoleSpecialUser, acme, globex)
	token, _ := s.login("sam@collab.test")

	s.Require().NoError(s.tenantRepo.DetachMember(s.ctx, user.ID, acme.ID))

	_, err := s.identity.Resolve(s.ctx, token)
	s.ErrorIs(err, ErrForbiddenTenant)
}

func (s *IdentityServiceTestSuite) TestResolve_RoleComesFromUserRow() {
	s.createUser("root@collab.test", "root", models.RoleAdmin)
	token, _ := s.login("root@collab.test")

	user, err := s.userRepo.FindByEmail(s.ctx, "root@collab.test")
	s.Require().NoError(err)
	user.Role = models.RoleSpecialUser
	s.Require().NoError(s.userRepo.Update(s.ctx, user))

	p, err := s.identity.Resolve(s.ctx, token)
	s.Require().NoError(err)
	s.False(p.IsAdmin())
}

func (s *IdentityServiceTestSuite) TestSwitchTenant_SpecialUser() {
	acme := s.createTenant("acme")
	globex := s.createTenant("globex")
	initech := s.createTenant("initech")
	s.createUser("sam@collab.test", "sam", models.RoleSpecialUser, acme, globex)
	token, p := s.login("sam@collab.test")

	switched, err := s.identity.SwitchTenant(s.ctx, p, globex.ID)
	s.Require().NoError(err)
	s.Equal(globex.ID, *switched.ActiveTenantID)
	s.Equal("globex", switched.TenantCode)

	resolved, err := s.identity.Resolve(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(globex.ID, *resolved.ActiveTenantID)

	// not a member: the session is left untouched
	_, err = s.identity.SwitchTenant(s.ctx, resolved, initech.ID)
	s.ErrorIs(err, ErrForbiddenTenant)

	resolved, err = s.identity.Resolve(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(globex.ID, *resolved.ActiveTenantID)
}

func (s *IdentityServiceTestSuite) TestSwitchTenant_StandardUserIsPinned() {
	acme := s.createTenant("acme")
	s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)
	_, p := s.login("alice@acme.test")

	_, err := s.identity.SwitchTenant(s.ctx, p, acme.ID)
	s.ErrorIs(err, ErrForbiddenTenant)
}

func (s *IdentityServiceTestSuite) TestSwitchTenant_Admin() {
	acme := s.createTenant("acme")
	closed := s.createTenant("closed")
	closed.Status = models.TenantStatusInactive
	s.Require().NoError(s.db.Save(closed).Error)
	s.createUser("root@collab.test", "root", models.RoleAdmin)
	_, p := s.login("root@collab.test")

	switched, err := s.identity.SwitchTenant(s.ctx, p, acme.ID)
	s.Require().NoError(err)
	s.Equal(acme.ID, *switched.ActiveTenantID)

	_, err = s.identity.SwitchTenant(s.ctx, switched, closed.ID)
	s.ErrorIs(err, ErrForbiddenTenant)

	_, err = s.identity.SwitchTenant(s.ctx, switched, 9999)
	s.ErrorIs(err, ErrForbiddenTenant)
}

func (s *IdentityServiceTestSuite) TestLogoutAndRevoke() {
	acme := s.createTenant("acme")
	user := s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)
	first, _ := s.login("alice@acme.test")
	second, _ := s.login("alice@acme.test")
	third, _ := s.login("alice@acme.test")

	s.Require().NoError(s.identity.Logout(s.ctx, first))
	_, err := s.identity.Resolve(s.ctx, first)
	s.ErrorIs(err, ErrUnauthenticated)

	_, err = s.identity.Resolve(s.ctx, second)
	s.NoError(err)

	s.Require().NoError(s.identity.Revoke(s.ctx, user.ID))
	for _, token := range []string{second, third} {
		_, err = s.identity.Resolve(s.ctx, token)
		s.ErrorIs(err, ErrUnauthenticated)
	}
}

func (s *IdentityServiceTestSuite) TestScope() {
	acme := s.createTenant("acme")
	globex := s.createTenant("globex")
	s.createUser("alice@acme.test", "alice", models.RoleStandardUser, acme)
	s.createUser("root@collab.test", "root", models.RoleAdmin)

	alice := s.principal("alice@acme.test")
	tenantID, err := s.identity.Scope(alice, nil)
	s.NoError(err)
	s.Equal(acme.ID, tenantID)

	tenantID, err = s.identity.Scope(alice, uint64Ptr(acme.ID))
	s.NoError(err)
	s.Equal(acme.ID, tenantID)

	_, err = s.identity.Scope(alice, uint64Ptr(globex.ID))
	s.ErrorIs(err, ErrForbiddenTenant)

	root := s.principal("root@collab.test")
	_, err = s.identity.Scope(root, nil)
	s.ErrorIs(err, ErrForbiddenTenant)

	tenantID, err = s.identity.Scope(root, uint64Ptr(globex.ID))
	s.NoError(err)
	s.Equal(globex.ID, tenantID)
}

func (s *IdentityServiceTestSuite) TestListTenants() {
	acme := s.createTenant("acme")
	globex := s.createTenant("globex")
	s.createTenant("initech")
	s.createUser("sam@collab.test", "sam", models.RoleSpecialUser, acme, globex)
	s.createUser("root@collab.test", "root", models.RoleAdmin)

	views, err := s.identity.ListTenants(s.ctx, s.principal("sam@collab.test"))
	s.Require().NoError(err)
	s.Require().Len(views, 2)
	s.True(views[0].IsPrimary)
	s.True(views[0].IsActive)
	s.False(views[1].IsActive)

	views, err = s.identity.ListTenants(s.ctx, s.principal("root@collab.test"))
	s.Require().NoError(err)
	s.Len(views, 3)
}
