package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/access-api/internal/middleware"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// AccessHandler takes extra guards for its login-check route.
type AccessHandler interface {
	RegisterRoutes(*gin.RouterGroup, ...gin.HandlerFunc)
}

type Router struct {
	engine      *gin.Engine
	auth        *middleware.AuthMiddleware
	rateLimiter *middleware.RateLimiter
	healthH     Handler
	userH       Handler
	orgH        Handler
	accessH     AccessHandler
}

type RouterConfig struct {
	Timeout   middleware.TimeoutConfig
	SizeLimit middleware.SizeLimitConfig
	Security  middleware.SecurityConfig
	RateLimit middleware.RateLimiterConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	userH Handler,
	orgH Handler,
	accessH AccessHandler,
	m *metrics.Metrics,
	config RouterConfig,
) *Router {
	engine := gin.New()

	if config.RateLimit.Key == nil {
		config.RateLimit.Key = middleware.LoginSourceKey
	}

	r := &Router{
		engine:      engine,
		auth:        auth,
		rateLimiter: middleware.NewRateLimiter(config.RateLimit),
		healthH:     healthH,
		userH:       userH,
		orgH:        orgH,
		accessH:     accessH,
	}

	// Recovery sits inside Logger so a recovered panic is still logged with its status.
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.SecurityHeaders(config.Security),
		middleware.Timeout(config.Timeout),
		middleware.SizeLimit(config.SizeLimit),
		middleware.Validation(middleware.DefaultValidationConfig()),
	)

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.healthH.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(
		r.auth.Authenticate(),
		middleware.TenantGuard(),
	)
	r.userH.RegisterRoutes(protected)
	r.orgH.RegisterRoutes(protected)
	r.accessH.RegisterRoutes(protected, r.rateLimiter.RateLimit())
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
