package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

type MessageTestSuite struct {
	mongoTestSuite
}

func (s *MessageTestSuite) send(from, to, text string, ts time.Time) {
	s.NoError(s.store.AddMessage(&schema.ChatMessage{
		SenderID:   from,
		ReceiverID: to,
		Message:    text,
		Timestamp:  ts,
	}))
}

func (s *MessageTestSuite) TestListMessagesAscending() {
	base := time.Date(2020, 5, 25, 8, 0, 0, 0, time.UTC)
	s.send("a", "b", "second", base.Add(time.Minute))
	s.send("b", "a", "first", base)
	s.send("a", "b", "third", base.Add(2*time.Minute))
	s.send("a", "c", "elsewhere", base)

	messages, err := s.store.ListMessages("b", "a", 0)
	s.NoError(err)
	s.Len(messages, 3)
	s.Equal("first", messages[0].Message)
	s.Equal("second", messages[1].Message)
	s.Equal("third", messages[2].Message)
}

func (s *MessageTestSuite) TestListMessagesKeepsLatest() {
	base := time.Date(2020, 5, 25, 8, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three", "four"} {
		s.send("a", "b", text, base.Add(time.Duration(i)*time.Second))
	}

	messages, err := s.store.ListMessages("a", "b", 2)
	s.NoError(err)
	s.Len(messages, 2)
	s.Equal("three", messages[0].Message)
	s.Equal("four", messages[1].Message)
}

func (s *MessageTestSuite) TestListMessagesWholeHistory() {
	base := time.Date(2020, 5, 25, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		s.send("a", "b", fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Second))
	}

	messages, err := s.store.ListMessages("b", "a", 0)
	s.NoError(err)
	s.Len(messages, 120)
	s.Equal("message 0", messages[0].Message)
	s.Equal("message 119", messages[119].Message)
}

func (s *MessageTestSuite) TestListMessagesEmpty() {
	messages, err := s.store.ListMessages("a", "b", 50)
	s.NoError(err)
	s.NotNil(messages)
	s.Empty(messages)
}

func TestMessageTestSuite(t *testing.T) {
	suite.Run(t, &MessageTestSuite{mongoTestSuite{connURI: testMongoURI(t), testDBName: testDBName}})
}
