package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/collab-chat-api/internal/constants"
	"github.com/yukikurage/collab-chat-api/internal/models"
)

type MessageServiceTestSuite struct {
	serviceSuite

	acme, globex *models.Tenant
	alice, bob   *models.User
	mallory      *models.User
}

func TestMessageService(t *testing.T) {
	suite.Run(t, new(MessageServiceTestSuite))
}

func (s *MessageServiceTestSuite) SetupTest() {
	s.serviceSuite.SetupTest()

	s.acme = s.createTenant("acme")
	s.globex = s.createTenant("globex")
	s.alice = s.createUser("alice@acme.test", "alice", models.RoleStandardUser, s.acme)
	s.bob = s.createUser("bob@acme.test", "bob", models.RoleStandardUser, s.acme)
	s.mallory = s.createUser("mallory@globex.test", "mallory", models.RoleStandardUser, s.globex)
}

func (s *MessageServiceTestSuite) TestAppend_IDsIncrease() {
	alice := s.principal("alice@acme.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)
	random := s.createChannel(alice, "random", models.ChannelTypePublic)

	var last uint64
	for i := 0; i < 5; i++ {
		channelID := general.ID
		if i%2 == 1 {
			channelID = random.ID
		}
		m := s.post(alice, channelID, "hello")
		s.Greater(m.ID, last)
		last = m.ID
	}
}

func (s *MessageServiceTestSuite) TestAppend_ConsecutiveIDsListNewestFirst() {
	alice := s.principal("alice@acme.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)

	first := s.post(alice, general.ID, "one")
	second := s.post(alice, general.ID, "two")
	third := s.post(alice, general.ID, "three")
	s.Equal(first.ID+1, second.ID)
	s.Equal(first.ID+2, third.ID)

	page, err := s.messages.List(s.ctx, alice, general.ID, nil, 10)
	s.Require().NoError(err)
	ids := make([]uint64, len(page))
	for i, m := range page {
		ids[i] = m.ID
	}
	s.Equal([]uint64{third.ID, second.ID, first.ID}, ids)
}

func (s *MessageServiceTestSuite) TestAppend_PrivateChannelAfterAddMember() {
	alice := s.principal("alice@acme.test")
	bob := s.principal("bob@acme.test")
	private := s.createChannel(alice, "private", models.ChannelTypePrivate)

	input := AppendInput{ChannelID: private.ID, Content: "let me in"}
	_, err := s.messages.Append(s.ctx, bob, input)
	s.ErrorIs(err, ErrForbiddenChannel)

	_, err = s.channels.AddMember(s.ctx, alice, private.ID, s.bob.ID, models.ChannelRoleMember)
	s.Require().NoError(err)

	m, err := s.messages.Append(s.ctx, bob, input)
	s.Require().NoError(err)
	s.Equal(private.ID, m.ChannelID)

	summary, err := s.readStates.UnreadSummary(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(int64(1), summary[private.ID].Unread)
}

func (s *MessageServiceTestSuite) TestAppend_Validation() {
	alice := s.principal("alice@acme.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)
	random := s.createChannel(alice, "random", models.ChannelTypePublic)
	other := s.post(alice, random.ID, "elsewhere")

	cases := []struct {
		name  string
		input AppendInput
		err   error
	}{
		{"blank", AppendInput{ChannelID: general.ID, Content: "  \n "}, ErrEmptyContent},
		{"too long", AppendInput{ChannelID: general.ID, Content: strings.Repeat("a", constants.MaxMessageLength+1)}, ErrContentTooLong},
		{"parent in another channel", AppendInput{ChannelID: general.ID, Content: "re", ParentMessageID: &other.ID}, ErrInvalidParent},
		{"missing parent", AppendInput{ChannelID: general.ID, Content: "re", ParentMessageID: uint64Ptr(99999)}, ErrInvalidParent},
		{"missing channel", AppendInput{ChannelID: 99999, Content: "hi"}, ErrForbiddenChannel},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.messages.Append(s.ctx, alice, tc.input)
			s.ErrorIs(err, tc.err)
		})
	}

	m := s.post(alice, general.ID, "  trimmed  ")
	s.Equal("trimmed", m.Content)
}

func (s *MessageServiceTestSuite) TestAppend_CrossTenantIsForbidden() {
	alice := s.principal("alice@acme.test")
	mallory := s.principal("mallory@globex.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)

	_, err := s.messages.Append(s.ctx, mallory, AppendInput{ChannelID: general.ID, Content: "hi"})
	s.ErrorIs(err, ErrForbiddenChannel)

	_, err = s.messages.List(s.ctx, mallory, general.ID, nil, 0)
	s.ErrorIs(err, ErrForbiddenChannel)
}

func (s *MessageServiceTestSuite) TestAppend_WakesTenantWaiters() {
	alice := s.principal("alice@acme.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)

	acmeWake, cancelAcme := s.notifier.Subscribe(s.acme.ID)
	defer cancelAcme()
	globexWake, cancelGlobex := s.notifier.Subscribe(s.globex.ID)
	defer cancelGlobex()

	s.post(alice, general.ID, "ping")

	s.Len(acmeWake, 1)
	s.Len(globexWake, 0)
}

func (s *MessageServiceTestSuite) TestList_Paging() {
	alice := s.principal("alice@acme.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)

	var ids []uint64
	for i := 0; i < 7; i++ {
		ids = append(ids, s.post(alice, general.ID, "m").ID)
	}

	page, err := s.messages.List(s.ctx, alice, general.ID, nil, 3)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
	s.Equal(ids[6], page[0].ID)
	s.Equal(ids[4], page[2].ID)

	page, err = s.messages.List(s.ctx, alice, general.ID, &page[2].ID, 3)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
	s.Equal(ids[3], page[0].ID)
	s.Equal(ids[1], page[2].ID)

	page, err = s.messages.List(s.ctx, alice, general.ID, &page[2].ID, 3)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(ids[0], page[0].ID)

	// zero falls back to the default page size
	page, err = s.messages.List(s.ctx, alice, general.ID, nil, 0)
	s.Require().NoError(err)
	s.Len(page, 7)
}

func (s *MessageServiceTestSuite) TestEdit() {
	alice := s.principal("alice@acme.test")
	bob := s.principal("bob@acme.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)
	m := s.post(alice, general.ID, "helo")

	_, err := s.messages.Edit(s.ctx, bob, m.ID, "hacked")
	s.ErrorIs(err, ErrNotMessageAuthor)

	_, err = s.messages.Edit(s.ctx, alice, m.ID, " ")
	s.ErrorIs(err, ErrEmptyContent)

	edited, err := s.messages.Edit(s.ctx, alice, m.ID, "hello")
	s.Require().NoError(err)
	s.Equal(m.ID, edited.ID)
	s.True(edited.IsEdited)

	page, err := s.messages.List(s.ctx, alice, general.ID, nil, 10)
	s.Require().NoError(err)
	s.Equal("hello", page[0].Content)
	s.True(page[0].IsEdited)
}

func (s *MessageServiceTestSuite) TestDelete_RedactsContent() {
	alice := s.principal("alice@acme.test")
	bob := s.principal("bob@acme.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)
	mine := s.post(bob, general.ID, "bob says")
	theirs := s.post(alice, general.ID, "alice says")

	// bob is not a manager of general
	s.ErrorIs(s.messages.Delete(s.ctx, bob, theirs.ID), ErrForbiddenChannel)

	s.Require().NoError(s.messages.Delete(s.ctx, bob, mine.ID))
	// the owner may delete anyone's message
	s.Require().NoError(s.messages.Delete(s.ctx, alice, theirs.ID))
	s.Require().NoError(s.messages.Delete(s.ctx, alice, theirs.ID))

	page, err := s.messages.List(s.ctx, alice, general.ID, nil, 10)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	for _, m := range page {
		s.True(m.IsDeleted)
		s.Equal(constants.DeletedPlaceholder, m.Content)
	}

	_, err = s.messages.Edit(s.ctx, bob, mine.ID, "undo")
	s.ErrorIs(err, ErrMessageDeleted)

	_, err = s.messages.Append(s.ctx, alice, AppendInput{ChannelID: general.ID, Content: "re", ParentMessageID: &mine.ID})
	s.ErrorIs(err, ErrInvalidParent)
}

func (s *MessageServiceTestSuite) TestThread() {
	alice := s.principal("alice@acme.test")
	bob := s.principal("bob@acme.test")
	mallory := s.principal("mallory@globex.test")
	general := s.createChannel(alice, "general", models.ChannelTypePublic)

	parent := s.post(alice, general.ID, "question?")
	s.post(alice, general.ID, "unrelated")
	first, err := s.messages.Append(s.ctx, bob, AppendInput{ChannelID: general.ID, Content: "answer 1", ParentMessageID: &parent.ID})
	s.Require().NoError(err)
	second, err := s.messages.Append(s.ctx, alice, AppendInput{ChannelID: general.ID, Content: "answer 2", ParentMessageID: &parent.ID})
	s.Require().NoError(err)

	root, replies, err := s.messages.Thread(s.ctx, bob, parent.ID)
	s.Require().NoError(err)
	s.Equal(parent.ID, root.ID)
	s.Require().Len(replies, 2)
	s.Equal(first.ID, replies[0].ID)
	s.Equal(second.ID, replies[1].ID)

	_, _, err = s.messages.Thread(s.ctx, mallory, parent.ID)
	s.ErrorIs(err, ErrForbiddenChannel)
}
