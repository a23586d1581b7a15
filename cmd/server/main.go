package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/audit"
	"github.com/zfogg/circle/internal/auth"
	"github.com/zfogg/circle/internal/cache"
	"github.com/zfogg/circle/internal/config"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/handlers"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/middleware"
	"github.com/zfogg/circle/internal/telemetry"
	"go.uber.org/zap"
)

const serviceName = "circle-backend"

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(cfg.Log, cfg.IsDevelopment()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log.Info("=== Circle server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("version", version),
	)

	tp, err := telemetry.InitTracer(context.Background(), cfg.Tracing, telemetry.Service{
		Name:        serviceName,
		Version:     version,
		Environment: cfg.Environment,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer func() { _ = database.Close() }()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	m := metrics.Initialize()

	if cfg.AuditInterval > 0 {
		auditScheduler := audit.NewScheduler(audit.NewAuditor(database.DB, m), cfg.AuditInterval, cfg.AuditAutoRepair)
		auditScheduler.Start()
		defer auditScheduler.Stop()
	}

	tokens, err := auth.NewService(cfg.JWTSecret, auth.DefaultTokenTTL)
	if err != nil {
		logger.FatalWithFields("Failed to initialize auth service", err)
	}

	// Redis is optional; without it toggles are limited per process
	var redisClient *cache.RedisClient
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, falling back to in-memory rate limiting", zap.Error(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	limitConfig := middleware.ToggleRateLimitConfig(cfg.ToggleRateLimit, cfg.ToggleRateWindow)
	limitConfig.Metrics = m
	var toggleLimit gin.HandlerFunc
	if redisClient != nil {
		toggleLimit = middleware.RedisRateLimitMiddleware(redisClient, limitConfig)
	} else {
		limiter := middleware.NewRateLimiter(limitConfig)
		go sweepLimiter(ctx, limiter, cfg.ToggleRateWindow)
		toggleLimit = limiter.Middleware()
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware(m))
	r.Use(middleware.TracingMiddleware(serviceName))
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	h := handlers.NewHandlers(database.DB, m)
	h.RegisterOps(r)
	h.RegisterRoutes(r, handlers.Middlewares{
		Auth:         middleware.AuthMiddleware(tokens),
		OptionalAuth: middleware.OptionalAuthMiddleware(tokens),
		ToggleLimit:  toggleLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
		logger.Log.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

// sweepLimiter drops idle in-memory buckets once per window
func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter, window time.Duration) {
	if window <= 0 {
		window = time.Minute
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				logger.Log.Debug("Swept idle rate limit buckets", zap.Int("count", n))
			}
		}
	}
}
