package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/plasmalink-api/store/mocks"
)

func TestGateCachesPositiveDecision(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	m := mocks.NewMockMongoStore(ctl)
	m.EXPECT().HasMatch("a", "b").Return(true, nil).Times(1)

	g := NewGate(m, time.Minute)

	ok, err := g.IsMatched("a", "b")
	assert.NoError(t, err)
	assert.True(t, ok)

	// the reverse order hits the same cache entry
	ok, err = g.IsMatched("b", "a")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestGateDoesNotCacheNegativeDecision(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	m := mocks.NewMockMongoStore(ctl)
	gomock.InOrder(
		m.EXPECT().HasMatch("a", "b").Return(false, nil),
		m.EXPECT().HasMatch("a", "b").Return(true, nil),
	)

	g := NewGate(m, time.Minute)

	ok, err := g.IsMatched("a", "b")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.IsMatched("a", "b")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestGateSelfAndEmpty(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	g := NewGate(mocks.NewMockMongoStore(ctl), time.Minute)

	for _, pair := range [][2]string{{"a", "a"}, {"", "b"}, {"a", ""}} {
		ok, err := g.IsMatched(pair[0], pair[1])
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestGateStoreError(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	m := mocks.NewMockMongoStore(ctl)
	m.EXPECT().HasMatch("a", "b").Return(false, errors.New("mongo down"))

	ok, err := NewGate(m, time.Minute).IsMatched("a", "b")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestGateMatchedContacts(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	m := mocks.NewMockMongoStore(ctl)
	m.EXPECT().MatchedUserIDs("a").Return([]string{"b", "c"}, nil)

	ids, err := NewGate(m, time.Minute).MatchedContacts("a")
	assert.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids)
}
