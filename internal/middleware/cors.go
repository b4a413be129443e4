package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowHeaders  = "Content-Type, Authorization, Accept, Origin, X-Requested-With, X-Request-ID"
	corsExposeHeaders = "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After, X-Request-ID"
)

// CORSConfig is filled from CORS_ALLOWED_ORIGINS, CORS_ALLOWED_METHODS and CORS_MAX_AGE.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	MaxAge         time.Duration
}

// CORS answers preflights for the configured origins and marks credentialed
// responses. Unknown origins get no Access-Control-Allow-Origin, so the
// browser blocks them; the request itself still runs.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins[o] = struct{}{}
		}
	}

	methods := []string{http.MethodOptions}
	for _, m := range cfg.AllowedMethods {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" && m != http.MethodOptions {
			methods = append(methods, m)
		}
	}
	allowMethods := strings.Join(methods, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge / time.Second))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		_, known := origins[origin]

		if origin != "" {
			h.Add("Vary", "Origin")
		}
		if known {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method != http.MethodOptions {
			if known {
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			}
			c.Next()
			return
		}

		// preflight ends here, before rate limiting and authentication
		if known {
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
