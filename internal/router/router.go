package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"merchantpay/internal/domain"
	"merchantpay/internal/middleware"
	"merchantpay/internal/pkg/response"
	"merchantpay/internal/ratelimit"
	"merchantpay/internal/telemetry"
)

// Route declares one endpoint together with its access policy.
// Non-public routes get RequireRoles(Allow); an empty Allow admits any
// authenticated caller.
type Route struct {
	Method  string
	Path    string
	Public  bool
	Allow   domain.RoleSet
	Handler gin.HandlerFunc
}

// Module is implemented by every HTTP handler set mounted under /api/v1.
type Module interface {
	Routes() []Route
}

func Mount(g gin.IRoutes, routes []Route) {
	for _, rt := range routes {
		handlers := make([]gin.HandlerFunc, 0, 2)
		if !rt.Public {
			handlers = append(handlers, middleware.RequireRoles(rt.Allow))
		}
		handlers = append(handlers, rt.Handler)
		g.Handle(rt.Method, rt.Path, handlers...)
	}
}

type Options struct {
	Verifier middleware.TokenVerifier
	Limiter  *ratelimit.Limiter
	Metrics  *telemetry.Metrics
	CORS     middleware.CORSConfig
	// TrustedProxies may set the client IP through X-Forwarded-For.
	// Empty means the TCP peer address is the client, so rate-limit keys
	// cannot be chosen by the caller.
	TrustedProxies []string
	// Ping reports database health for /health; nil skips the check.
	Ping func(ctx context.Context) error
}

// New builds the engine: request id, recovery, logging, CORS, metrics,
// then rate limiting and authentication for /api/v1.
func New(opts Options, modules ...Module) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.CORS(opts.CORS),
	)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				response.Error(c, http.StatusServiceUnavailable, response.CodeInternal, "Database unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	if opts.Limiter != nil {
		api.Use(middleware.RateLimit(opts.Limiter, opts.Metrics))
	}
	api.Use(middleware.Authenticate(opts.Verifier))
	for _, m := range modules {
		Mount(api, m.Routes())
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Route not found")
	})

	return r, nil
}
