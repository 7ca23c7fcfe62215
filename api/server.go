package api

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/uber-go/tally"

	"github.com/bitmark-inc/plasmalink-api/bloodgroup"
	"github.com/bitmark-inc/plasmalink-api/chat"
	"github.com/bitmark-inc/plasmalink-api/donation"
	"github.com/bitmark-inc/plasmalink-api/geo"
	"github.com/bitmark-inc/plasmalink-api/logmodule"
	"github.com/bitmark-inc/plasmalink-api/messaging"
	"github.com/bitmark-inc/plasmalink-api/notification"
	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/search"
	"github.com/bitmark-inc/plasmalink-api/store"
)

const (
	defaultClientURL     = "http://localhost:3000"
	defaultMatchCacheTTL = 5 * time.Minute
)

var log *logrus.Entry

func init() {
	log = logrus.WithField("prefix", "gin")
}

// Server to run a http server instance
type Server struct {
	// Server instance
	server *http.Server

	// Stores
	store store.MongoStore

	// Core services
	search   *search.Engine
	donation *donation.Service
	gate     *chat.Gate
	hub      *chat.Hub

	// address lookup for profile locations, optional
	resolver geo.LocationResolver

	// job queue enqueuer
	background notification.TaskSender

	// JWT signing secret
	jwtSecret []byte

	upgrader    websocket.Upgrader
	rateLimiter *RateLimiter

	// metrics
	scope          tally.Scope
	metricsHandler http.Handler
}

// NewServer new instance of server
func NewServer(
	mongoStore store.MongoStore,
	broker messaging.Broker,
	taskSender notification.TaskSender,
	resolver geo.LocationResolver,
	scope tally.Scope,
	metricsHandler http.Handler) *Server {
	if scope == nil {
		scope = tally.NoopScope
	}

	registerValidators()

	matchCacheTTL := viper.GetDuration("chat.match_cache_ttl")
	if matchCacheTTL <= 0 {
		matchCacheTTL = defaultMatchCacheTTL
	}
	gate := chat.NewGate(mongoStore, matchCacheTTL)

	return &Server{
		store:  mongoStore,
		search: search.NewEngine(mongoStore, searchConfig()),
		donation: donation.NewService(
			mongoStore,
			mongoStore,
			notification.NewTaskPublisher(taskSender),
			scope,
			viper.GetDuration("donation.eligibility_interval"),
		),
		gate:       gate,
		hub:        chat.NewHub(gate, mongoStore, broker, chatConfig(), scope),
		resolver:   resolver,
		background: taskSender,
		jwtSecret:  []byte(viper.GetString("jwt.secret")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		rateLimiter: NewRateLimiter(
			viper.GetInt("server.ratelimit.max"),
			viper.GetDuration("server.ratelimit.window"),
		),
		scope:          scope,
		metricsHandler: metricsHandler,
	}
}

func clientURL() string {
	if u := viper.GetString("server.client_url"); u != "" {
		return u
	}
	return defaultClientURL
}

func searchConfig() search.Config {
	config := search.DefaultConfig()
	if r := viper.GetFloat64("search.default_radius"); r > 0 {
		config.DefaultRadiusKm = r
	}
	if r := viper.GetFloat64("search.max_radius"); r > 0 {
		config.MaxRadiusKm = r
	}
	return config
}

func chatConfig() chat.Config {
	config := chat.DefaultConfig()
	if limit := viper.GetInt("chat.message_limit"); limit > 0 {
		config.MessageLimit = limit
	}
	if limit := viper.GetInt64("chat.history_limit"); limit > 0 {
		config.HistoryLimit = limit
	}
	return config
}

// Run to run the server
func (s *Server) Run(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.setupRouter(),
	}

	return s.server.ListenAndServe()
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         10 * time.Second,
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{clientURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(s.metricsMiddleware())

	r.GET("/", s.root)

	apiRoute := r.Group("/api")
	apiRoute.Use(logmodule.Ginrus("API"))
	apiRoute.Use(s.rateLimiter.RateLimit())
	apiRoute.GET("/information", s.information)

	authRoute := apiRoute.Group("/auth")
	{
		authRoute.POST("/register", s.register)
		authRoute.POST("/login", s.login)
	}

	// api route other than `/information` and `/auth` will apply the following middleware
	apiRoute.Use(s.authMiddleware())
	apiRoute.Use(s.recognizeUserMiddleware())

	apiRoute.GET("/socket", s.socket)

	profileRoute := apiRoute.Group("/profile")
	{
		profileRoute.GET("", s.getProfile)
		profileRoute.PUT("", s.updateProfile)
		profileRoute.GET("/availability", s.getAvailability)
		profileRoute.PUT("/availability", s.updateAvailability)
	}

	searchRoute := apiRoute.Group("/search")
	{
		searchRoute.GET("", s.searchDonors)
		searchRoute.GET("/donors", s.searchDonors)
		searchRoute.GET("/recipients", s.searchRecipients)
	}

	donationRoute := apiRoute.Group("/donation")
	{
		donationRoute.POST("/request/:donorId", s.createRequest)
		donationRoute.POST("/cancel/:userId", s.cancelRequest)

		donorRoute := donationRoute.Group("")
		donorRoute.Use(requireRole(schema.RoleDonor))
		{
			donorRoute.POST("", s.logDonation)
			donorRoute.POST("/confirm/:requesterId", s.confirmRequest)
			donorRoute.POST("/fulfill/:requesterId", s.fulfillRequest)
			donorRoute.GET("/nearby-requests", s.nearbyRequests)
			donorRoute.GET("/confirmed-requests", s.confirmedRequests)
			donorRoute.GET("/history", s.donationHistory)
			donorRoute.GET("/stats", s.donationStats)
		}

		requesterRoute := donationRoute.Group("")
		requesterRoute.Use(requireRole(schema.RoleRequester))
		{
			requesterRoute.GET("/active-requests", s.activeRequests)
			requesterRoute.GET("/request-history", s.requestHistory)
		}
	}

	chatRoute := apiRoute.Group("/chat")
	{
		chatRoute.GET("/matched-contacts", s.matchedContacts)
		chatRoute.GET("/check-match/:userId", s.checkMatch)
		chatRoute.GET("/:userId", s.chatHistory)
	}

	notificationRoute := apiRoute.Group("/notifications")
	{
		notificationRoute.GET("", s.listNotifications)
		notificationRoute.GET("/unread-count", s.unreadNotificationCount)
		notificationRoute.PUT("/mark-all-read", s.markAllNotificationsRead)
		notificationRoute.PUT("/:id/read", s.markNotificationRead)
	}

	secretRoute := r.Group("/secret")
	secretRoute.Use(logmodule.Ginrus("Secret"))
	secretRoute.Use(s.apikeyAuthentication(viper.GetString("server.apikey.admin")))
	{
		secretRoute.POST("/expire-requests", s.adminExpireRequests)
		secretRoute.GET("/donations", s.adminListDonations)
	}

	if s.metricsHandler != nil {
		metricRoute := r.Group("/metrics")
		metricRoute.Use(logmodule.Ginrus("Metric"))
		metricRoute.Use(s.apikeyAuthentication(viper.GetString("server.apikey.metric")))
		{
			metricRoute.GET("", gin.WrapH(s.metricsHandler))
		}
	}

	r.GET("/healthz", s.healthz)

	return r
}

// Shutdown to shutdown the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// shouldInterupt sends error message and determine if it should interupt the current flow
func shouldInterupt(err error, c *gin.Context) bool {
	if err == nil {
		return false
	}

	log.Error(err)
	abortWithEncoding(c, http.StatusInternalServerError, internalError(err), err)
	return true
}

func (s *Server) healthz(c *gin.Context) {
	// Ping db
	err := s.store.Ping()
	if shouldInterupt(err, c) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"version": viper.GetString("server.version"),
	})
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "PlasmaLink API",
		"version": viper.GetString("server.version"),
	})
}

func (s *Server) information(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"information": map[string]interface{}{
			"server": map[string]interface{}{
				"version": viper.GetString("server.version"),
			},
			"system_version": "PlasmaLink 1.0",
			"blood_groups":   bloodgroup.All,
			"search": map[string]interface{}{
				"default_radius": searchConfig().DefaultRadiusKm,
				"max_radius":     searchConfig().MaxRadiusKm,
			},
			"chat": map[string]interface{}{
				"message_limit": chatConfig().MessageLimit,
			},
		},
	})
}

func responseWithEncoding(c *gin.Context, code int, obj ErrorResponse) {
	acceptEncoding := c.GetHeader("Accept-Encoding")
	switch acceptEncoding {
	default:
		c.JSON(code, obj)
	}
}

func abortWithEncoding(c *gin.Context, code int, obj ErrorResponse, errors ...error) {
	for _, err := range errors {
		if err != nil {
			c.Error(err)
		}
	}
	responseWithEncoding(c, code, obj)
	c.Abort()
}

// requester returns the authenticated user attached by recognizeUserMiddleware
func requester(c *gin.Context) (*schema.User, bool) {
	user, ok := c.MustGet("user").(*schema.User)
	if !ok {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer)
	}
	return user, ok
}
