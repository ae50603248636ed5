package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/config"
	"papershare-backend/internal/shared/metrics"
	"papershare-backend/internal/shared/server/middleware"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the built handlers and the pieces the middleware needs.
type RouterDeps struct {
	Config   config.Config
	Tokens   *auth.Tokens
	Sessions middleware.SessionChecker
	Metrics  *metrics.Collector
	// RateLimits overrides DefaultRateLimits when set.
	RateLimits map[string]middleware.RateLimitRule
	Handlers   []RouteRegistrar
}

// DefaultRateLimits are per-principal token buckets keyed by route group.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		"READ":    {Rate: 20, Burst: 60},
		"DEFAULT": {Rate: 5, Burst: 20},
		"AUTH":    {Rate: 1, Burst: 10},
	}
}

func rateLimitGroup(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case strings.HasPrefix(path, "/api/v1/auth/"):
		return "AUTH"
	case c.Request.Method == http.MethodGet:
		return "READ"
	default:
		return "DEFAULT"
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", deps.Metrics.Handler())
	}

	rules := deps.RateLimits
	if rules == nil {
		rules = DefaultRateLimits()
	}

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Tokens, deps.Sessions),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rules,
			GroupFor: rateLimitGroup,
		}),
	)
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
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
