package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RichardKnop/machinery/v1/backends/result"
	"github.com/RichardKnop/machinery/v1/tasks"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"

	messagingmocks "github.com/bitmark-inc/plasmalink-api/messaging/mocks"
	"github.com/bitmark-inc/plasmalink-api/schema"
	storemocks "github.com/bitmark-inc/plasmalink-api/store/mocks"
)

var (
	locationSinica        = schema.Location{Latitude: 25.0416, Longitude: 121.6144}
	locationTaipeiStation = schema.Location{Latitude: 25.0478, Longitude: 121.5170}
	locationTaoyuan       = schema.Location{Latitude: 24.9936, Longitude: 121.3010}
)

type recordingSender struct {
	signatures []*tasks.Signature
	err        error
}

func (r *recordingSender) SendTask(signature *tasks.Signature) (*result.AsyncResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.signatures = append(r.signatures, signature)
	return nil, nil
}

type testEnv struct {
	store  *storemocks.MockMongoStore
	broker *messagingmocks.MockBroker
	sender *recordingSender
	scope  tally.TestScope
	server *Server
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	ctl := gomock.NewController(t)
	t.Cleanup(ctl.Finish)

	viper.Set("jwt.secret", "test-secret")
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		store:  storemocks.NewMockMongoStore(ctl),
		broker: messagingmocks.NewMockBroker(ctl),
		sender: &recordingSender{},
		scope:  tally.NewTestScope("", nil),
	}
	env.server = NewServer(env.store, env.broker, env.sender, nil, env.scope, nil)
	env.router = env.server.setupRouter()

	return env
}

// login makes the user known to the auth middlewares and returns its token
func (e *testEnv) login(t *testing.T, user *schema.User) string {
	e.store.EXPECT().GetUser(user.ID).Return(user, nil).AnyTimes()

	token, err := e.server.issueToken(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "wrong json unmarshal")
	return resp
}

func donor(id, group string, loc *schema.Location) *schema.User {
	return &schema.User{ID: id, Name: id, Email: id + "@example.com", Role: schema.RoleDonor, BloodGroup: group, Location: loc, IsAvailable: true}
}

func recipient(id, group string, loc *schema.Location) *schema.User {
	return &schema.User{ID: id, Name: id, Email: id + "@example.com", Role: schema.RoleRequester, BloodGroup: group, Location: loc}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	env.store.EXPECT().Ping().Return(nil)

	w := env.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "wrong status code")

	counters := env.scope.Snapshot().Counters()
	c, ok := counters["http_requests+route=/healthz,status=200"]
	require.True(t, ok, "request counter is missing")
	assert.Equal(t, int64(1), c.Value())
}

func TestHealthzDatabaseDown(t *testing.T) {
	env := newTestEnv(t)
	env.store.EXPECT().Ping().Return(errors.New("no reachable servers"))

	viper.Set("server.mode", "production")
	defer viper.Set("server.mode", "")

	w := env.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, int64(999), resp.Code)
	assert.Empty(t, resp.Details, "production responses hide the cause")
}

func TestInternalErrorDetailsInDevelopment(t *testing.T) {
	viper.Set("server.mode", "development")
	defer viper.Set("server.mode", "")

	resp := internalError(errors.New("connection refused"))
	assert.Equal(t, int64(999), resp.Code)
	assert.Equal(t, "connection refused", resp.Details)
}

func TestAuthMiddlewareRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int64(1001), decodeError(t, w).Code)

	w = env.do("GET", "/api/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int64(1003), decodeError(t, w).Code)
}

func TestRequireRole(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, recipient("r1", "A+", nil))

	w := env.do("POST", "/api/donation/confirm/d1", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, int64(1103), decodeError(t, w).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "third request within the window")
	assert.True(t, rl.Allow("10.0.0.2"), "clients are limited separately")
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewRateLimiter(1, time.Hour).RateLimit())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, int64(1500), decodeError(t, w).Code)
}

func TestAdminExpireRequests(t *testing.T) {
	viper.Set("server.apikey.admin", "admin-key")
	defer viper.Set("server.apikey.admin", "")
	env := newTestEnv(t)

	w := env.do("POST", "/secret/expire-requests", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "api token is required")

	req := httptest.NewRequest("POST", "/secret/expire-requests", nil)
	req.Header.Set("Api-Token", "admin-key")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.sender.signatures, 1)
	assert.Equal(t, "expire_pending_requests", env.sender.signatures[0].Name)
}

func TestParseGeoPosition(t *testing.T) {
	lat, lng, err := parseGeoPosition("25.0416;121.6144")
	assert.NoError(t, err)
	assert.Equal(t, 25.0416, lat)
	assert.Equal(t, 121.6144, lng)

	_, _, err = parseGeoPosition("25.0416")
	assert.Error(t, err)
}
