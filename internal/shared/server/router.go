package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/events"
	"lasdesk/internal/files"
	"lasdesk/internal/services/health"
	"lasdesk/internal/shared/config"
	"lasdesk/internal/shared/metrics"
	"lasdesk/internal/shared/server/middleware"
	"lasdesk/internal/shared/server/respond"
	"lasdesk/internal/wells"
)

// RouterDeps holds dependencies needed to build the router.
type RouterDeps struct {
	Config       config.Config
	FilesHandler *files.Handler
	WellsHandler *wells.Handler
	EventHandler *events.Handler
	Health       *health.Service
	RateLimiter  *middleware.RateLimiter
}

// DefaultRateLimitRules are the per-client buckets applied to API routes.
func DefaultRateLimitRules() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		middleware.RateGroupDefault: {Rate: 20, Burst: 60},
		middleware.RateGroupUpload:  {Rate: 1, Burst: 10},
		middleware.RateGroupProcess: {Rate: 2, Burst: 20},
		middleware.RateGroupStream:  {Rate: 0.5, Burst: 5},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(time.Now)
	}

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		payload, ok := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})
	api.GET("/metrics", metrics.Handler())

	limited := api.Group("")
	limited.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:    DefaultRateLimitRules(),
		GroupFor: middleware.FileRateGroup,
		Limiter:  limiter,
	}))
	if deps.FilesHandler != nil {
		deps.FilesHandler.RegisterRoutes(limited)
	}
	if deps.WellsHandler != nil {
		deps.WellsHandler.RegisterRoutes(limited)
	}
	if deps.EventHandler != nil {
		deps.EventHandler.RegisterRoutes(limited)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
