package logmodule

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinrusLevels(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Ginrus("API"))
	router.GET("/ok", func(c *gin.Context) {
		c.Set("requester", "u1")
		c.Status(http.StatusOK)
	})
	router.GET("/bad", func(c *gin.Context) {
		c.AbortWithStatus(http.StatusBadRequest)
	})
	router.GET("/fail", func(c *gin.Context) {
		c.Error(errors.New("mongo down"))
		c.AbortWithStatus(http.StatusInternalServerError)
	})

	cases := []struct {
		path  string
		level log.Level
	}{
		{"/ok?x=1", log.InfoLevel},
		{"/bad", log.WarnLevel},
		{"/fail", log.ErrorLevel},
	}

	for _, tc := range cases {
		hook.Reset()
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tc.path, nil))

		entry := hook.LastEntry()
		require.NotNil(t, entry, tc.path)
		assert.Equal(t, tc.level, entry.Level, tc.path)
		assert.Equal(t, "API", entry.Data["prefix"])
		assert.Equal(t, tc.path, entry.Data["path"])
	}

	hook.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ok", nil))
	assert.Equal(t, "u1", hook.LastEntry().Data["requester"])

	hook.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/fail", nil))
	assert.Contains(t, hook.LastEntry().Data["errors"], "mongo down")
}
