package chat

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/plasmalink-api/store"
)

// Gate decides whether two users may talk. A pair is matched once a record
// between them is accepted, in either role assignment.
type Gate struct {
	donations store.DonationStore
	matched   *cache.Cache
}

// NewGate caches positive decisions for ttl. A match never goes back, so
// only misses reach the store again.
func NewGate(donations store.DonationStore, ttl time.Duration) *Gate {
	return &Gate{
		donations: donations,
		matched:   cache.New(ttl, 2*ttl),
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (g *Gate) IsMatched(userA, userB string) (bool, error) {
	if userA == "" || userB == "" || userA == userB {
		return false, nil
	}

	key := pairKey(userA, userB)
	if _, ok := g.matched.Get(key); ok {
		return true, nil
	}

	ok, err := g.donations.HasMatch(userA, userB)
	if err != nil {
		return false, err
	}
	if ok {
		g.matched.SetDefault(key, struct{}{})
	}

	return ok, nil
}

// MatchedContacts returns the ids of everyone the user is matched with
func (g *Gate) MatchedContacts(userID string) ([]string, error) {
	return g.donations.MatchedUserIDs(userID)
}
