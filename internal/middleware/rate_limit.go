package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/tunelease/server/pkg/errors"
	"github.com/tunelease/server/pkg/httputil"
	"github.com/tunelease/server/pkg/limiter"
	"github.com/tunelease/server/pkg/logger"
	redispkg "github.com/tunelease/server/pkg/redis"
)

// RateLimit limits streaming requests per caller over a sliding window. The
// key is the company id when authenticated, the client IP otherwise.
//
// Redis failures fail open: a broken limiter must not take playback down.
func RateLimit(rl *limiter.RateLimiter, limit int64, window time.Duration, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetString(CompanyIDKey)
		if caller == "" {
			caller = c.ClientIP()
		}

		allowed, err := rl.Allow(c.Request.Context(), redispkg.StreamRateKey(caller), limit, window)
		if err != nil {
			log.WithFields(
				logger.String("request_id", GetRequestID(c)),
				logger.Error(err),
			).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			httputil.ErrorResponse(c, apperrors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
