package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/access-api/pkg/errors"
	"github.com/jwalitptl/access-api/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// IdleTTL is how long a client's bucket survives without requests.
	IdleTTL time.Duration
	// Key picks the bucket for a request. Defaults to the client IP.
	Key func(c *gin.Context) string
}

// RateLimiter keeps one token bucket per key. Idle buckets expire from the cache.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *gocache.Cache
	mu       sync.Mutex
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if config.Key == nil {
		config.Key = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{
		config:   config,
		limiters: gocache.New(config.IdleTTL, 2*config.IdleTTL),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.limiters.Get(key); ok {
		rl.limiters.Set(key, v, gocache.DefaultExpiration)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.limiters.Set(key, l, gocache.DefaultExpiration)
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(rl.config.Key(c)).Allow() {
			httputil.RespondWithError(c, errors.TooManyRequests())
			return
		}
		c.Next()
	}
}

// LoginSourceKey buckets login checks by tenant and the source_ip being checked.
// Requests without a readable source_ip fall back to the client IP.
func LoginSourceKey(c *gin.Context) string {
	tenant := c.GetString(ContextPGID)
	if c.Request.Body == nil {
		return tenant + "|" + c.ClientIP()
	}

	data, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return tenant + "|" + c.ClientIP()
	}

	var peek struct {
		SourceIP string `json:"source_ip"`
	}
	if json.Unmarshal(data, &peek) != nil {
		return tenant + "|" + c.ClientIP()
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(peek.SourceIP))
	if err != nil {
		return tenant + "|" + c.ClientIP()
	}
	return tenant + "|" + addr.Unmap().String()
}
