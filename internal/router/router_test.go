package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/access-api/internal/middleware"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

type routes func(*gin.RouterGroup)

func (f routes) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

type accessRoutes struct{}

func (accessRoutes) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	rg.POST("/access/login-check", append(guards, ok)...)
}

func ok(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"pgid": c.GetString(middleware.ContextPGID)}) }

func newTestRouter(t *testing.T) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), "test")

	r := NewRouter(
		middleware.NewAuthMiddleware(middleware.AuthConfig{Secret: "secret"}),
		routes(func(rg *gin.RouterGroup) { rg.GET("/health/live", ok) }),
		routes(func(rg *gin.RouterGroup) { rg.GET("/users", ok) }),
		routes(func(rg *gin.RouterGroup) { rg.GET("/offices", ok) }),
		accessRoutes{},
		m,
		RouterConfig{
			Timeout:   middleware.DefaultTimeoutConfig(),
			SizeLimit: middleware.DefaultSizeLimitConfig(),
			Security:  middleware.DefaultSecurityConfig(),
			RateLimit: middleware.RateLimiterConfig{Rate: rate.Limit(0.001), Burst: 1},
		},
	)
	r.Setup()
	return r.Engine(), m
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		PGID: "pg1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(e *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	e.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	e, _ := newTestRouter(t)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/api/v1/health/live", "").Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e, _ := newTestRouter(t)

	for _, path := range []string{"/api/v1/users", "/api/v1/offices"} {
		assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, path, "").Code, path)

		w := serve(e, http.MethodGet, path, bearer(t))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"pgid":"pg1"}`, w.Body.String())
	}
}

func TestLoginCheckIsRateLimited(t *testing.T) {
	e, _ := newTestRouter(t)
	token := bearer(t)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/api/v1/access/login-check", token).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/api/v1/access/login-check", token).Code)

	// Other routes share no bucket with login-check.
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/api/v1/users", token).Code)
}

func TestRequestsAreCountedByRoute(t *testing.T) {
	e, m := newTestRouter(t)
	serve(e, http.MethodGet, "/api/v1/users", bearer(t))
	serve(e, http.MethodGet, "/nowhere", "")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/users", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "unmatched", "404")))
}
