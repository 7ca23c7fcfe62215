package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

func (s *Server) matchedContacts(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	ids, err := s.gate.MatchedContacts(user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	users, err := s.store.GetUsers(ids)
	if err != nil {
		abortWithError(c, err)
		return
	}

	contacts := make([]schema.Summary, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			contacts = append(contacts, u.Summary())
		}
	}

	c.JSON(http.StatusOK, contacts)
}

func (s *Server) checkMatch(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	matched, err := s.gate.IsMatched(user.ID, c.Param("userId"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"isMatched": matched})
}

// chatHistory returns the latest messages with a matched user, oldest
// first. Unmatched pairs get nothing but the refusal.
func (s *Server) chatHistory(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	messages, err := s.hub.History(user.ID, c.Param("userId"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}
