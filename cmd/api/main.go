package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"merchantpay/internal/config"
	"merchantpay/internal/database"
	"merchantpay/internal/logger"
	"merchantpay/internal/middleware"
	"merchantpay/internal/modules/auth"
	"merchantpay/internal/modules/merchant"
	"merchantpay/internal/modules/payment"
	"merchantpay/internal/modules/users"
	"merchantpay/internal/pkg/jwt"
	"merchantpay/internal/pkg/validator"
	"merchantpay/internal/ratelimit"
	"merchantpay/internal/repository"
	"merchantpay/internal/router"
	"merchantpay/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogPretty)
	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	tokens, err := jwt.New(cfg.JWTSecret, cfg.JWTAccessTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("jwt setup failed")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer func() { _ = database.Close(db) }()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}
	metrics := telemetry.NewMetrics()

	limiter := ratelimit.New(ratelimit.Config{
		Window:          cfg.RateLimitWindow,
		MaxRequests:     cfg.RateLimitMax,
		CleanupInterval: cfg.RateLimitCleanup,
	}, ratelimit.NewMemoryStore())
	go limiter.Run(ctx)
	defer limiter.Stop()

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	posRepo := repository.NewPOSRepository(db)
	orderRepo := repository.NewPaymentOrderRepository(db)

	authService := auth.NewService(userRepo, tokenRepo, tokens, cfg.RefreshTTL, cfg.RefreshTokenPepper)
	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Secure:   cfg.CookieSecure,
		SameSite: cfg.SameSite(),
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
	}, metrics)

	merchantHandler := merchant.NewHandler(merchant.NewService(tenantRepo, merchantRepo, branchRepo, posRepo))
	usersHandler := users.NewHandler(users.NewService(userRepo, tenantRepo, merchantRepo, branchRepo, posRepo, tokenRepo))
	paymentHandler := payment.NewHandler(payment.NewService(orderRepo, posRepo, branchRepo, merchantRepo))

	engine, err := router.New(router.Options{
		Verifier: tokens,
		Limiter:  limiter,
		Metrics:  metrics,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: cfg.AllowedMethods,
			MaxAge:         cfg.CORSMaxAge,
		},
		TrustedProxies: cfg.TrustedProxies,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}, authHandler, merchantHandler, usersHandler, paymentHandler)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           telemetry.WrapHandler(engine, telemetry.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}
