package middleware

import (
	"context"
	"net/http"
	"strconv"

	"convolab/internal/redis"
	"convolab/internal/transport/httpdto"
	convolab_errors "convolab/pkg/errors"
	"convolab/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limiter is satisfied by *redis.RateLimiter.
type Limiter interface {
	AllowAsk(ctx context.Context, ip string) (*redis.RateLimitResult, error)
	AllowAuth(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// RateLimitMiddleware limits prompt relays and auth attempts per client IP.
// A nil limiter disables the check.
func RateLimitMiddleware(limiter Limiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		var check func(context.Context, string) (*redis.RateLimitResult, error)
		switch {
		case isAuthEndpoint(c.FullPath()):
			check = limiter.AllowAuth
		case c.FullPath() == "/ask":
			check = limiter.AllowAsk
		default:
			c.Next()
			return
		}

		result, err := check(c.Request.Context(), c.ClientIP())
		if err != nil {
			if l != nil {
				l.WithContext(c.Request.Context()).Error("rate limit check failed", zap.Error(err))
			}
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(convolab_errors.ErrRateLimited.Error(), "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}

func isAuthEndpoint(path string) bool {
	switch path {
	case "/signup", "/login":
		return true
	}
	return false
}
