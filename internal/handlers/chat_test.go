package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/collab-chat-api/internal/models"
)

type ChatHandlerTestSuite struct {
	routerSuite

	acme  *models.Tenant
	other *models.Tenant
	alice *models.User
	bob   *models.User
	eve   *models.User
}

func TestChatHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ChatHandlerTestSuite))
}

func (s *ChatHandlerTestSuite) SetupTest() {
	s.routerSuite.SetupTest()
	s.acme = s.createTenant("acme")
	s.other = s.createTenant("other")
	s.alice = s.createUser("alice@acme.test", models.RoleStandardUser, s.acme)
	s.bob = s.createUser("bob@acme.test", models.RoleStandardUser, s.acme)
	s.eve = s.createUser("eve@other.test", models.RoleStandardUser, s.other)
}

type channelResp struct {
	ID   uint64             `json:"id"`
	Name string             `json:"name"`
	Type models.ChannelType `json:"type"`
}

type messageResp struct {
	ID        uint64 `json:"id"`
	ChannelID uint64 `json:"channel_id"`
	Content   string `json:"content"`
	IsDeleted bool   `json:"is_deleted"`
}

func (s *ChatHandlerTestSuite) createChannel(token, name string, typ models.ChannelType, members ...uint64) channelResp {
	w := s.do(http.MethodPost, "/api/channels", token, gin.H{"name": name, "type": typ, "members": members})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var ch channelResp
	s.decode(w, &ch)
	return ch
}

func (s *ChatHandlerTestSuite) post(token string, channelID uint64, content string) messageResp {
	w := s.do(http.MethodPost, "/api/messages", token, gin.H{"channel_id": channelID, "content": content})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var m messageResp
	s.decode(w, &m)
	return m
}

func (s *ChatHandlerTestSuite) TestCreateAndListChannels() {
	alice := s.login("alice@acme.test")
	bob := s.login("bob@acme.test")

	general := s.createChannel(alice, "general", models.ChannelTypePublic)
	s.createChannel(alice, "secret", models.ChannelTypePrivate)

	w := s.do(http.MethodGet, "/api/channels", bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Channels []channelResp `json:"channels"`
	}
	s.decode(w, &resp)
	s.Require().Len(resp.Channels, 1)
	s.Equal(general.ID, resp.Channels[0].ID)
}

func (s *ChatHandlerTestSuite) TestCreateChannel_InvalidType() {
	alice := s.login("alice@acme.test")
	w := s.do(http.MethodPost, "/api/channels", alice, gin.H{"name": "x", "type": "broadcast"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ChatHandlerTestSuite) TestPostAndListMessages() {
	alice := s.login("alice@acme.test")
	ch := s.createChannel(alice, "general", models.ChannelTypePublic)

	first := s.post(alice, ch.ID, "one")
	second := s.post(alice, ch.ID, "two")
	s.Greater(second.ID, first.ID)

	w := s.do(http.MethodGet, "/api/messages?channel_id="+strconv.FormatUint(ch.ID, 10), alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Messages []messageResp `json:"messages"`
	}
	s.decode(w, &page)
	s.Require().Len(page.Messages, 2)
	s.Equal(second.ID, page.Messages[0].ID)

	w = s.do(http.MethodGet, "/api/messages?channel_id="+strconv.FormatUint(ch.ID, 10)+"&before="+strconv.FormatUint(second.ID, 10), alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &page)
	s.Require().Len(page.Messages, 1)
	s.Equal(first.ID, page.Messages[0].ID)
}

func (s *ChatHandlerTestSuite) TestPostMessage_EmptyContent() {
	alice := s.login("alice@acme.test")
	ch := s.createChannel(alice, "general", models.ChannelTypePublic)

	w := s.do(http.MethodPost, "/api/messages", alice, gin.H{"channel_id": ch.ID, "content": "   "})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ChatHandlerTestSuite) TestPostMessage_ReportsFailedBindingRules() {
	alice := s.login("alice@acme.test")

	w := s.do(http.MethodPost, "/api/messages", alice, gin.H{"content": "hi"})
	s.Require().Equal(http.StatusBadRequest, w.Code)

	var resp struct {
		Code    string `json:"code"`
		Details []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"details"`
	}
	s.decode(w, &resp)
	s.Equal("INVALID_INPUT", resp.Code)
	s.Require().Len(resp.Details, 1)
	s.Equal("ChannelID", resp.Details[0].Field)
	s.Equal("required", resp.Details[0].Rule)

	// malformed JSON carries no details
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+alice)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusBadRequest, w.Code)
	s.NotContains(w.Body.String(), "details")
}

func (s *ChatHandlerTestSuite) TestCrossTenantChannelIsForbidden() {
	alice := s.login("alice@acme.test")
	eve := s.login("eve@other.test")
	ch := s.createChannel(alice, "general", models.ChannelTypePublic)
	s.post(alice, ch.ID, "hello")

	w := s.do(http.MethodGet, "/api/messages?channel_id="+strconv.FormatUint(ch.ID, 10), eve, nil)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN_CHANNEL", s.errorCode(w))

	w = s.do(http.MethodPost, "/api/messages", eve, gin.H{"channel_id": ch.ID, "content": "intrusion"})
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN_CHANNEL", s.errorCode(w))

	w = s.do(http.MethodPost, idPath("/api/channels", ch.ID, "/join"), eve, nil)
	s.Equal(http.StatusForbidden, w.Code)

	// a channel that does not exist looks the same
	w = s.do(http.MethodGet, "/api/messages?channel_id=999999", eve, nil)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN_CHANNEL", s.errorCode(w))
}

func (s *ChatHandlerTestSuite) TestEditAndDeleteMessage() {
	alice := s.login("alice@acme.test")
	bob := s.login("bob@acme.test")
	ch := s.createChannel(alice, "general", models.ChannelTypePublic)
	msg := s.post(alice, ch.ID, "draft")

	w := s.do(http.MethodPatch, idPath("/api/messages", msg.ID, ""), bob, gin.H{"content": "hijack"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, idPath("/api/messages", msg.ID, ""), alice, gin.H{"content": "final"})
	s.Require().Equal(http.StatusOK, w.Code)
	var edited messageResp
	s.decode(w, &edited)
	s.Equal("final", edited.Content)

	w = s.do(http.MethodDelete, idPath("/api/messages", msg.ID, ""), alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/messages?channel_id="+strconv.FormatUint(ch.ID, 10), alice, nil)
	var page struct {
		Messages []messageResp `json:"messages"`
	}
	s.decode(w, &page)
	s.Require().Len(page.Messages, 1)
	s.True(page.Messages[0].IsDeleted)
	s.NotEqual("final", page.Messages[0].Content)
}

func (s *ChatHandlerTestSuite) TestUnreadSummaryAndMarkRead() {
	alice := s.login("alice@acme.test")
	bob := s.login("bob@acme.test")
	ch := s.createChannel(alice, "team", models.ChannelTypePrivate, s.bob.ID)
	s.post(alice, ch.ID, "hi")
	last := s.post(alice, ch.ID, "@bob are you there?")

	key := strconv.FormatUint(ch.ID, 10)
	var summary struct {
		Channels map[string]struct {
			Unread int64 `json:"unread"`
		} `json:"channels"`
	}
	w := s.do(http.MethodGet, "/api/unread-summary", bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &summary)
	s.Equal(int64(2), summary.Channels[key].Unread)

	w = s.do(http.MethodPost, "/api/messages/read", bob, gin.H{"channel_id": ch.ID, "last_message_id": last.ID})
	s.Require().Equal(http.StatusOK, w.Code)

	summary.Channels = nil
	w = s.do(http.MethodGet, "/api/unread-summary", bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &summary)
	s.Zero(summary.Channels[key].Unread)
}

func (s *ChatHandlerTestSuite) TestAdminRoutesRequireAdmin() {
	alice := s.login("alice@acme.test")
	w := s.do(http.MethodPost, "/api/admin/tenants", alice, gin.H{"code": "new", "name": "New"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/admin/tenants", "", gin.H{"code": "new", "name": "New"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *ChatHandlerTestSuite) TestAdminCreatesTenantAndUser() {
	s.createUser("root@collab.test", models.RoleAdmin)
	root := s.login("root@collab.test")

	w := s.do(http.MethodPost, "/api/admin/tenants", root, gin.H{"code": "globex", "name": "Globex"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var tenant struct {
		ID uint64 `json:"id"`
	}
	s.decode(w, &tenant)

	w = s.do(http.MethodPost, "/api/admin/tenants", root, gin.H{"code": "GLOBEX", "name": "Dup"})
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/admin/users", root, gin.H{
		"email":     "hank@globex.test",
		"password":  testPassword,
		"role":      models.RoleStandardUser,
		"tenant_id": tenant.ID,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	hank := s.login("hank@globex.test")
	w = s.do(http.MethodGet, "/api/auth/me", hank, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var me struct {
		ActiveTenantID *uint64 `json:"active_tenant_id"`
	}
	s.decode(w, &me)
	s.Require().NotNil(me.ActiveTenantID)
	s.Equal(tenant.ID, *me.ActiveTenantID)
}

func (s *ChatHandlerTestSuite) TestAdminWithoutTenantIsNotScoped() {
	s.createUser("root@collab.test", models.RoleAdmin)
	root := s.login("root@collab.test")

	w := s.do(http.MethodGet, "/api/channels", root, nil)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN_TENANT", s.errorCode(w))

	w = s.do(http.MethodGet, "/api/channels", root, nil, "X-Tenant-ID", strconv.FormatUint(s.acme.ID, 10))
	s.Equal(http.StatusOK, w.Code)
}

func (s *ChatHandlerTestSuite) TestPoll_TimesOutWithEmptyList() {
	alice := s.login("alice@acme.test")
	ch := s.createChannel(alice, "general", models.ChannelTypePublic)
	last := s.post(alice, ch.ID, "old news")

	start := time.Now()
	w := s.do(http.MethodGet, "/api/chat/poll?timeout=1&since_id="+strconv.FormatUint(last.ID, 10), alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.GreaterOrEqual(time.Since(start), 900*time.Millisecond)
	s.JSONEq(`{"messages":[]}`, w.Body.String())
}

func (s *ChatHandlerTestSuite) TestPoll_ReturnsNewMessages() {
	alice := s.login("alice@acme.test")
	bob := s.login("bob@acme.test")
	ch := s.createChannel(alice, "general", models.ChannelTypePublic)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- s.do(http.MethodGet, "/api/chat/poll?timeout=5", bob, nil)
	}()

	time.Sleep(150 * time.Millisecond)
	msg := s.post(alice, ch.ID, "ping")

	select {
	case w := <-done:
		s.Require().Equal(http.StatusOK, w.Code)
		var resp struct {
			Messages []messageResp `json:"messages"`
		}
		s.decode(w, &resp)
		s.Require().Len(resp.Messages, 1)
		s.Equal(msg.ID, resp.Messages[0].ID)
	case <-time.After(4 * time.Second):
		s.Fail("poll did not return after a new message")
	}
}

func (s *ChatHandlerTestSuite) TestPoll_InvalidParams() {
	alice := s.login("alice@acme.test")

	w := s.do(http.MethodGet, "/api/chat/poll?since_id=-1", alice, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/chat/poll?timeout=abc", alice, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}
