package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

const defaultNotificationListLimit = 20

func (s *Server) listNotifications(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	limit := viper.GetInt64("notification.list_limit")
	if limit <= 0 {
		limit = defaultNotificationListLimit
	}

	notifications, err := s.store.ListNotifications(user.ID, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

func (s *Server) unreadNotificationCount(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	count, err := s.store.CountUnreadNotifications(user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) markNotificationRead(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	n, err := s.store.MarkNotificationRead(user.ID, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

func (s *Server) markAllNotificationsRead(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	updated, err := s.store.MarkAllNotificationsRead(user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
