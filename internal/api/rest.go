// Package api provides the REST API for Hassarr: service calls, last
// results, sensor states, user mappings, schedules, settings, LLM tools and
// a WebSocket stream of events and logs.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mescon/Hassarr/internal/auth"
	"github.com/mescon/Hassarr/internal/config"
	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/eventbus"
	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/metrics"
	"github.com/mescon/Hassarr/internal/notifier"
	"github.com/mescon/Hassarr/internal/services"
)

type RESTServer struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        *db.Repository
	eventBus    *eventbus.EventBus
	media       *services.MediaService
	coordinator *services.Coordinator
	scheduler   *services.SchedulerService
	results     *services.ResultStore
	notifier    *notifier.Notifier
	metrics     *metrics.MetricsService
	hub         *WebSocketHub
	startTime   time.Time
}

// ServerDeps contains all dependencies required for the REST server.
// Repo and Media are required; the rest may be nil and their routes answer
// 503.
type ServerDeps struct {
	Repo        *db.Repository
	EventBus    *eventbus.EventBus
	Media       *services.MediaService
	Coordinator *services.Coordinator
	Scheduler   *services.SchedulerService
	Results     *services.ResultStore
	Notifier    *notifier.Notifier
	Metrics     *metrics.MetricsService
}

func NewRESTServer(deps ServerDeps) *RESTServer {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(requestIDMiddleware())
	r.Use(recoveryMiddleware())
	r.Use(corsMiddleware(config.Get().CORSOrigin))

	s := &RESTServer{
		router:      r,
		repo:        deps.Repo,
		eventBus:    deps.EventBus,
		media:       deps.Media,
		coordinator: deps.Coordinator,
		scheduler:   deps.Scheduler,
		results:     deps.Results,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		startTime:   time.Now(),
	}
	if deps.EventBus != nil {
		s.hub = NewWebSocketHub(deps.EventBus)
	}

	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler serving every route.
func (s *RESTServer) Handler() http.Handler {
	return s.router
}

// requestIDMiddleware tags every request with an id for log correlation.
// A client-supplied X-Request-ID is kept.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		reqID := c.GetString("request_id")
		logger.Errorf("[PANIC RECOVERY] request_id=%s path=%s method=%s error=%v",
			reqID, c.Request.URL.Path, c.Request.Method, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      ErrMsgInternalError,
			"request_id": reqID,
		})
	})
}

// corsMiddleware allows origin ("*" for any). Without an origin no CORS
// header is set and browsers enforce same-origin.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestOrigin := c.GetHeader("Origin")
		switch {
		case origin == "*":
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && requestOrigin == origin:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key, X-Request-ID, X-Hassarr-User-ID, X-Hassarr-Username, X-Hassarr-Admin, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *RESTServer) setupRoutes() {
	cfg := config.Get()
	basePath := cfg.BasePath

	// /metrics stays at the root so scrapers need not know the base path
	if cfg.MetricsEnabled && s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	var base *gin.RouterGroup
	if basePath == "/" {
		base = s.router.Group("")
	} else {
		base = s.router.Group(basePath)
		s.router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, basePath)
		})
	}

	api := base.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		api.POST("/setup", SetupLimiter.Middleware(), s.handleAuthSetup)
		api.POST("/auth/login", LoginLimiter.Middleware(), s.handleLogin)
		api.GET("/auth/status", s.handleAuthStatus)

		protected := api.Group("")
		protected.Use(APILimiter.Middleware(), s.authMiddleware())
		{
			protected.GET("/auth/key", s.getAPIKey)
			protected.POST("/auth/regenerate", s.regenerateAPIKey)
			protected.POST("/auth/password", s.changePassword)

			protected.POST("/services/:name", s.callService)
			protected.GET("/results", s.getResults)
			protected.GET("/results/:name", s.getResult)

			protected.GET("/sensors", s.getSensors)
			protected.GET("/binary_sensors", s.getBinarySensors)
			protected.POST("/sensors/refresh", s.refreshSensors)

			protected.GET("/user-mappings", s.getUserMappings)
			protected.PUT("/user-mappings/:ha_user_id", s.putUserMapping)
			protected.DELETE("/user-mappings/:ha_user_id", s.deleteUserMapping)
			protected.GET("/overseerr/users", s.getOverseerrUsers)

			protected.GET("/arr/:service/quality-profiles", s.getArrQualityProfiles)
			protected.GET("/arr/:service/root-folders", s.getArrRootFolders)

			protected.GET("/events", s.getEvents)

			protected.GET("/schedules", s.getSchedules)
			protected.POST("/schedules", s.addSchedule)
			protected.PUT("/schedules/:id", s.updateSchedule)
			protected.DELETE("/schedules/:id", s.deleteSchedule)

			protected.GET("/settings", s.getSettings)
			protected.PUT("/settings", s.updateSettings)

			protected.GET("/notifications", s.getNotifications)
			protected.POST("/notifications/test", s.testNotification)

			protected.GET("/logs/recent", s.handleRecentLogs)
			protected.GET("/logs/download", s.handleDownloadLogs)

			protected.GET("/llm/tools", s.listLLMTools)
			protected.POST("/llm/tools/:name", s.callLLMTool)

			protected.GET("/ws", s.handleWebSocket)
		}
	}

	s.router.NoRoute(func(c *gin.Context) {
		if strings.Contains(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Not found",
			"api":   strings.TrimSuffix(basePath, "/") + "/api/",
		})
	})
}

func (s *RESTServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requestToken returns the API key from X-API-Key, a Bearer Authorization
// header or the token query parameter (used by WebSocket clients).
func requestToken(c *gin.Context) string {
	if token := c.GetHeader("X-API-Key"); token != "" {
		return token
	}
	if token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "); token != "" {
		return token
	}
	return c.Query("token")
}

func (s *RESTServer) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authentication token provided"})
			return
		}

		storedKey, err := s.repo.GetSetting(c.Request.Context(), "api_key")
		if errors.Is(err, db.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Setup required"})
			return
		}
		if err != nil {
			respondAuthError(c, err)
			c.Abort()
			return
		}

		if !auth.KeysEqual(storedKey, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}

		c.Next()
	}
}
