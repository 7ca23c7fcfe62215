package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bitmark-inc/plasmalink-api/bloodgroup"
	"github.com/bitmark-inc/plasmalink-api/geo"
	"github.com/bitmark-inc/plasmalink-api/store"
)

func (s *Server) getProfile(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, user)
}

// updateProfile changes name, blood group and location of the caller.
// Email, password and role are fixed after registration.
func (s *Server) updateProfile(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	var params struct {
		Name       *string         `json:"name" binding:"omitempty,min=2"`
		BloodGroup *string         `json:"bloodGroup" binding:"omitempty,bloodgroup"`
		Location   *locationParams `json:"location"`
	}

	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithInvalidParameters(c, err)
		return
	}

	loc, err := params.Location.location()
	if err != nil {
		abortWithInvalidParameters(c, err)
		return
	}

	var update store.ProfileUpdate
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		update.Name = &name
	}
	if params.BloodGroup != nil {
		group := bloodgroup.Normalize(*params.BloodGroup)
		update.BloodGroup = &group
	}
	if loc != nil {
		enriched := geo.EnrichAddress(s.resolver, *loc)
		update.Location = &enriched
	}

	updated, err := s.store.UpdateProfile(user.ID, update)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (s *Server) getAvailability(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"isAvailable": user.IsAvailable})
}

func (s *Server) updateAvailability(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	var params struct {
		IsAvailable *bool `json:"isAvailable" binding:"required"`
	}

	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithInvalidParameters(c, err)
		return
	}

	updated, err := s.store.UpdateAvailability(user.ID, *params.IsAvailable)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"isAvailable": updated.IsAvailable})
}
