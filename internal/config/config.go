package config

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	defaultJWTSecret          = "change-me-jwt-secret-change-me-jwt-secret"
	defaultRefreshTokenPepper = "change-me-refresh-pepper"
	minJWTSecretLength        = 32
)

// Config holds runtime configuration for the API and merchantctl.
type Config struct {
	AppEnv      string `env:"APP_ENV,default=dev"`
	HTTPAddr    string `env:"HTTP_ADDR,default=:8080"`
	DatabaseURL string `env:"DATABASE_URL,default=merchantpay.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=true"`

	JWTSecret          string        `env:"JWT_SECRET,default=change-me-jwt-secret-change-me-jwt-secret"`
	JWTAccessTTL       time.Duration `env:"JWT_ACCESS_TTL,default=15m"`
	RefreshTTL         time.Duration `env:"REFRESH_TTL,default=168h"`
	RefreshTokenPepper string        `env:"REFRESH_TOKEN_PEPPER,default=change-me-refresh-pepper"`

	CookieSecure   bool   `env:"COOKIE_SECURE,default=false"`
	CookieSameSite string `env:"COOKIE_SAMESITE,default=Lax"`
	CookiePath     string `env:"COOKIE_PATH,default=/"`
	CookieDomain   string `env:"COOKIE_DOMAIN"`

	RateLimitMax     int           `env:"RATE_LIMIT_MAX,default=100"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW,default=15m"`
	RateLimitCleanup time.Duration `env:"RATE_LIMIT_CLEANUP,default=1m"`

	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string      `env:"CORS_ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE"`
	CORSMaxAge     time.Duration `env:"CORS_MAX_AGE,default=10m"`

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// honoured for the client IP. Empty means the socket peer is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	LogLevel     string `env:"LOG_LEVEL,default=info"`
	LogPretty    bool   `env:"LOG_PRETTY,default=false"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads the process environment. Callers load .env with godotenv first.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from an arbitrary lookuper; tests pass envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.RefreshTokenPepper = strings.TrimSpace(cfg.RefreshTokenPepper)
	cfg.CookieSameSite = strings.TrimSpace(cfg.CookieSameSite)
	cfg.CookiePath = strings.TrimSpace(cfg.CookiePath)
	cfg.TrustedProxies = trimAll(cfg.TrustedProxies)
	cfg.AllowedMethods = trimAll(cfg.AllowedMethods)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TTL must be > 0")
	}
	if len(cfg.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}
	if cfg.RefreshTokenPepper == "" {
		return fmt.Errorf("REFRESH_TOKEN_PEPPER must not be empty")
	}
	if cfg.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be > 0")
	}
	if cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if cfg.RateLimitCleanup <= 0 {
		return fmt.Errorf("RATE_LIMIT_CLEANUP must be > 0")
	}
	for _, p := range cfg.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p)
		}
	}
	if cfg.CORSMaxAge < 0 {
		return fmt.Errorf("CORS_MAX_AGE must be >= 0")
	}
	if cfg.CookiePath == "" {
		return fmt.Errorf("COOKIE_PATH must not be empty")
	}
	if cfg.CookieSameSite == "" {
		return fmt.Errorf("COOKIE_SAMESITE must not be empty")
	}
	sameSite := strings.ToLower(cfg.CookieSameSite)
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	if cfg.IsProdLike() {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.RefreshTokenPepper, defaultRefreshTokenPepper) {
			return fmt.Errorf("in prod/release REFRESH_TOKEN_PEPPER must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}

	return nil
}

func (c *Config) IsProdLike() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production" || c.AppEnv == "release"
}

// SameSite maps the validated COOKIE_SAMESITE value to net/http.
func (c *Config) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// trimAll drops blank entries left by stray commas.
func trimAll(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func validProxy(p string) bool {
	if _, _, err := net.ParseCIDR(p); err == nil {
		return true
	}
	return net.ParseIP(p) != nil
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
