package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

type NotificationTestSuite struct {
	mongoTestSuite
}

func (s *NotificationTestSuite) add(id, user string, read bool, created time.Time) {
	s.NoError(s.store.AddNotification(&schema.Notification{
		ID:        id,
		UserID:    user,
		Title:     "New Blood Request",
		Message:   id,
		Type:      schema.NotificationRequest,
		IsRead:    read,
		CreatedAt: created,
	}))
}

func (s *NotificationTestSuite) SetupTest() {
	s.mongoTestSuite.SetupTest()

	base := time.Date(2020, 5, 25, 8, 0, 0, 0, time.UTC)
	s.add("n1", "alice", false, base)
	s.add("n2", "alice", true, base.Add(time.Hour))
	s.add("n3", "alice", false, base.Add(2*time.Hour))
	s.add("n4", "bob", false, base)
}

func (s *NotificationTestSuite) TestListNotifications() {
	notifications, err := s.store.ListNotifications("alice", 2)
	s.NoError(err)
	s.Len(notifications, 2)
	s.Equal("n3", notifications[0].ID)
	s.Equal("n2", notifications[1].ID)
}

func (s *NotificationTestSuite) TestMarkNotificationRead() {
	n, err := s.store.MarkNotificationRead("alice", "n1")
	s.NoError(err)
	s.True(n.IsRead)

	_, err = s.store.MarkNotificationRead("alice", "n4")
	s.Equal(ErrNotificationNotFound, err, "cannot touch notifications of others")

	count, err := s.store.CountUnreadNotifications("bob")
	s.NoError(err)
	s.Equal(int64(1), count)
}

func (s *NotificationTestSuite) TestMarkAllNotificationsRead() {
	count, err := s.store.CountUnreadNotifications("alice")
	s.NoError(err)
	s.Equal(int64(2), count)

	updated, err := s.store.MarkAllNotificationsRead("alice")
	s.NoError(err)
	s.Equal(int64(2), updated)

	count, err = s.store.CountUnreadNotifications("alice")
	s.NoError(err)
	s.Equal(int64(0), count)
}

func TestNotificationTestSuite(t *testing.T) {
	suite.Run(t, &NotificationTestSuite{mongoTestSuite{connURI: testMongoURI(t), testDBName: testDBName}})
}
