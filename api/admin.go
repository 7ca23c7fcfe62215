package api

import (
	"net/http"
	"strconv"

	"github.com/RichardKnop/machinery/v1/tasks"
	"github.com/gin-gonic/gin"

	"github.com/bitmark-inc/plasmalink-api/background"
	"github.com/bitmark-inc/plasmalink-api/store"
)

const defaultAdminListLimit = 100

// adminExpireRequests is an internal only api to trigger the task to
// cancel stale pending requests
func (s *Server) adminExpireRequests(c *gin.Context) {
	if _, err := s.background.SendTask(&tasks.Signature{
		Name: background.ExpirePendingRequestsTaskName,
	}); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, internalError(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "OK"})
}

// adminListDonations lists every match record, newest first
func (s *Server) adminListDonations(c *gin.Context) {
	limit := int64(defaultAdminListLimit)
	if l := c.Query("limit"); l != "" {
		n, err := strconv.ParseInt(l, 10, 64)
		if err != nil || n <= 0 {
			abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
			return
		}
		limit = n
	}

	donations, err := s.store.ListDonations(store.DonationFilter{
		Statuses: c.QueryArray("status"),
		Limit:    limit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, donations)
}
