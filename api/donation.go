package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitmark-inc/plasmalink-api/donation"
)

// createRequest asks the donor in the path for blood. The body may name a
// blood group other than the caller's own for proxy requests.
func (s *Server) createRequest(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	var params struct {
		BloodGroup string `json:"bloodGroup" binding:"omitempty,bloodgroup"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			abortWithInvalidParameters(c, err)
			return
		}
	}

	record, err := s.donation.CreateRequest(donation.RequestCommand{
		DonorID:     c.Param("donorId"),
		RequesterID: user.ID,
		BloodGroup:  params.BloodGroup,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (s *Server) confirmRequest(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	record, err := s.donation.ConfirmRequest(donation.ConfirmCommand{
		DonorID:     user.ID,
		RequesterID: c.Param("requesterId"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) cancelRequest(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	record, err := s.donation.CancelRequest(donation.CancelCommand{
		ActorID:       user.ID,
		CounterpartID: c.Param("userId"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) fulfillRequest(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	record, err := s.donation.FulfillRequest(donation.FulfillCommand{
		DonorID:     user.ID,
		RequesterID: c.Param("requesterId"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// logDonation records a donation given outside of a request
func (s *Server) logDonation(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	var params struct {
		RecipientID string     `json:"recipientId" binding:"required"`
		Date        *time.Time `json:"date"`
		Notes       string     `json:"notes" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithInvalidParameters(c, err)
		return
	}

	cmd := donation.LogCommand{
		DonorID:     user.ID,
		RecipientID: params.RecipientID,
		Notes:       params.Notes,
	}
	if params.Date != nil {
		cmd.Date = *params.Date
	}

	record, err := s.donation.LogDonation(cmd)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// requestViews answers a dashboard list of the caller
func (s *Server) requestViews(c *gin.Context, list func(string) ([]donation.RequestView, error)) {
	user, ok := requester(c)
	if !ok {
		return
	}

	views, err := list(user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

func (s *Server) nearbyRequests(c *gin.Context) {
	s.requestViews(c, s.donation.NearbyRequests)
}

func (s *Server) confirmedRequests(c *gin.Context) {
	s.requestViews(c, s.donation.ConfirmedRequests)
}

func (s *Server) donationHistory(c *gin.Context) {
	s.requestViews(c, s.donation.History)
}

func (s *Server) activeRequests(c *gin.Context) {
	s.requestViews(c, s.donation.ActiveRequests)
}

func (s *Server) requestHistory(c *gin.Context) {
	s.requestViews(c, s.donation.RequestHistory)
}

func (s *Server) donationStats(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	stats, err := s.donation.Stats(user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
