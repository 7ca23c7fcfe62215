package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitmark-inc/plasmalink-api/bloodgroup"
	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/search"
)

// searchQuery builds the engine query from the request arguments
func searchQuery(c *gin.Context, user *schema.User) (search.Query, error) {
	var params struct {
		Radius      string `form:"radius"`
		BloodGroup  string `form:"bloodGroup"`
		IsAvailable string `form:"isAvailable"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		return search.Query{}, err
	}

	center, err := searchCenter(c, user)
	if err != nil {
		return search.Query{}, err
	}

	q := search.Query{
		Center:     center,
		BloodGroup: bloodgroup.Normalize(params.BloodGroup),
		ExcludeID:  user.ID,
	}

	if params.Radius != "" {
		r, err := strconv.ParseFloat(params.Radius, 64)
		if err != nil {
			return search.Query{}, err
		}
		q.RadiusKm = r
	}

	if params.IsAvailable != "" {
		available, err := strconv.ParseBool(params.IsAvailable)
		if err != nil {
			return search.Query{}, err
		}
		q.Available = &available
	}

	return q, nil
}

func (s *Server) searchDonors(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	q, err := searchQuery(c, user)
	if err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidSearchQuery, err)
		return
	}

	results, err := s.search.SearchDonors(q)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"radius":  s.search.Radius(q.RadiusKm),
		"results": results,
	})
}

func (s *Server) searchRecipients(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	q, err := searchQuery(c, user)
	if err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidSearchQuery, err)
		return
	}

	// only donors get results marked against their own group
	viewerGroup := ""
	if user.Role == schema.RoleDonor {
		viewerGroup = user.BloodGroup
	}

	results, err := s.search.SearchRecipients(q, viewerGroup)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"radius":  s.search.Radius(q.RadiusKm),
		"results": results,
	})
}
