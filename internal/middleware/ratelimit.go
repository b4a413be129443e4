package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"merchantpay/internal/pkg/response"
	"merchantpay/internal/ratelimit"
)

// RateLimitRecorder counts denials; *telemetry.Metrics satisfies it.
type RateLimitRecorder interface {
	RateLimited()
}

// RateLimit applies the limiter per client IP.
func RateLimit(l *ratelimit.Limiter, rec RateLimitRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		d := l.Allow(key)

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetTime.Unix(), 10))

		if !d.Allowed {
			retry := d.RetryAfter(l.Now())
			h.Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
			if rec != nil {
				rec.RateLimited()
			}
			log.Warn().
				Str("client_ip", key).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Msg("rate limit exceeded")
			response.RateLimited(c)
			return
		}

		c.Next()
	}
}
