package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/store"
)

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, donor("d1", "O-", nil))

	env.store.EXPECT().ListNotifications("d1", int64(20)).Return([]schema.Notification{
		{ID: "n1", UserID: "d1", Title: "New blood request", Type: schema.NotificationRequest},
	}, nil)
	env.store.EXPECT().CountUnreadNotifications("d1").Return(int64(1), nil)
	env.store.EXPECT().MarkAllNotificationsRead("d1").Return(int64(1), nil)

	w := env.do("GET", "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "New blood request")

	w = env.do("GET", "/api/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 1}`, w.Body.String())

	w = env.do("PUT", "/api/notifications/mark-all-read", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated": 1}`, w.Body.String())
}

func TestMarkNotificationReadOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, donor("d1", "O-", nil))

	env.store.EXPECT().MarkNotificationRead("d1", "n-of-someone-else").Return(nil, store.ErrNotificationNotFound)

	w := env.do("PUT", "/api/notifications/n-of-someone-else/read", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int64(1301), decodeError(t, w).Code)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, donor("d1", "O-", nil))

	name := "Dana"
	group := "A-"
	updated := donor("d1", group, &locationSinica)
	updated.Name = name
	env.store.EXPECT().UpdateProfile("d1", store.ProfileUpdate{
		Name:       &name,
		BloodGroup: &group,
		Location:   &locationSinica,
	}).Return(updated, nil)

	w := env.do("PUT", "/api/profile", token, map[string]interface{}{
		"name":       " Dana ",
		"bloodGroup": "a-",
		"location":   map[string]interface{}{"lat": locationSinica.Latitude, "lng": locationSinica.Longitude},
		"email":      "ignored@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"name":"Dana"`)
}

func TestAvailability(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, donor("d1", "O-", nil))

	busy := donor("d1", "O-", nil)
	busy.IsAvailable = false
	env.store.EXPECT().UpdateAvailability("d1", false).Return(busy, nil)

	w := env.do("GET", "/api/profile/availability", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isAvailable": true}`, w.Body.String())

	w = env.do("PUT", "/api/profile/availability", token, map[string]bool{"isAvailable": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isAvailable": false}`, w.Body.String())

	w = env.do("PUT", "/api/profile/availability", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
