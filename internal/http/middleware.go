package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"vacations-api/internal/apperror"
	"vacations-api/internal/auth"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authorize runs a as gin middleware. On success the principal is attached
// to the request context; on failure the chain stops and the error is left
// for errorHandler.
func authorize(a auth.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.Authorize(c.Request)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// principal returns the caller of an authenticated route.
func principal(c *gin.Context) auth.Principal {
	p, _ := auth.PrincipalFrom(c.Request.Context())
	return p
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}).Info("request")
	}
}

// limitBody caps the request body so oversized uploads fail while parsing.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// ipRateLimiter keeps one token bucket per client ip.
type ipRateLimiter struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

// newIPRateLimiter allows perMinute requests per ip, all available as a burst.
// A non-positive perMinute disables limiting.
func newIPRateLimiter(perMinute int) *ipRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &ipRateLimiter{
		limit:       rate.Every(time.Minute / time.Duration(perMinute)),
		burst:       perMinute,
		limiters:    make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

func (l *ipRateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) > 5*time.Minute {
		// a full bucket means the client has been idle
		for k, lim := range l.limiters {
			if lim.Tokens() >= float64(l.burst) {
				delete(l.limiters, k)
			}
		}
		l.lastCleanup = time.Now()
	}

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

func (l *ipRateLimiter) middleware() gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		lim := l.get(c.ClientIP())
		if !lim.Allow() {
			r := lim.Reserve()
			retryAfter := max(int(r.Delay().Seconds()), 1)
			r.Cancel()

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			_ = c.Error(apperror.RateLimited("too many requests, try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}
