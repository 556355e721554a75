package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"farmgate-api/internal/cache"
	"farmgate-api/internal/config"
	"farmgate-api/internal/handler"
	"farmgate-api/internal/middleware"
	"farmgate-api/internal/repository"
	"farmgate-api/internal/router"
	"farmgate-api/internal/service"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting farmgate api",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version))

	// Open the primary store
	var db *sqlx.DB
	switch cfg.Store.Type {
	case "postgres", "postgresql":
		db, err = repository.OpenPostgres(cfg.Store.PostgresDSN())
		if err != nil {
			logger.Fatal("postgres initialization failed", zap.Error(err))
		}
		logger.Info("postgres store initialized")
	default: // sqlite
		db, err = repository.OpenSQLite(cfg.Store.Path)
		if err != nil {
			logger.Fatal("sqlite initialization failed", zap.Error(err))
		}
		logger.Info("sqlite store initialized", zap.String("path", cfg.Store.Path))
	}
	defer db.Close()

	// Open the accounts database (optional; auth routes degrade without it)
	var profileRepo repository.ProfileRepository
	accountsDB, err := sqlx.Open("mysql", cfg.AccountsDB.DSN())
	if err == nil {
		accountsDB.SetMaxOpenConns(10)
		accountsDB.SetMaxIdleConns(5)
		accountsDB.SetConnMaxLifetime(5 * time.Minute)

		if err := accountsDB.Ping(); err != nil {
			logger.Warn("accounts database ping failed", zap.Error(err))
			accountsDB.Close()
			accountsDB = nil
		} else {
			profileRepo = repository.NewMySQLProfileRepository(accountsDB)
			logger.Info("accounts database initialized")
		}
	} else {
		logger.Warn("accounts database connection failed", zap.Error(err))
		accountsDB = nil
	}
	if accountsDB != nil {
		defer accountsDB.Close()
	}

	// Initialize Redis client (optional; cache falls back to memory)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed", zap.Error(err))
		redisClient = nil
	} else {
		logger.Info("redis client initialized")
	}
	cancel()

	// Pick the cache backend
	var appCache cache.Cache
	var memCache *cache.MemoryCache
	if cfg.Cache.Type == "redis" && redisClient != nil {
		appCache = cache.NewRedisCache(redisClient, "")
		logger.Info("redis cache initialized")
	} else {
		memCache = cache.NewMemoryCache()
		appCache = memCache
		logger.Info("memory cache initialized")
	}

	// Repositories
	inquiryRepo := repository.NewSQLInquiryRepository(db)
	productRepo := repository.NewSQLProductRepository(db)
	locationRepo := repository.NewSQLLocationRepository(db)
	auditRepo := repository.NewSQLAuditLogRepository(db)

	// Services
	auditLogger := service.NewAuditLogger(auditRepo, logger)
	metrics := service.NewMetricsService(redisClient, logger)

	var tokenService *service.TokenService
	if redisClient != nil {
		tokenService = service.NewTokenService(redisClient, logger)
	}

	inquiryService := service.NewInquiryService(inquiryRepo, appCache, auditLogger, metrics, logger)
	productService := service.NewProductService(productRepo, appCache, auditLogger, logger)
	productReader := service.NewCachedProductReader(productService, appCache, logger)
	locationService := service.NewLocationService(locationRepo, appCache, logger)

	// Inquiry submissions are throttled per client IP
	inquiryLimiter := middleware.NewRateLimiter(
		cfg.RateLimit.InquiryLimit,
		cfg.RateLimit.InquiryWindow,
		func() { metrics.Incr(context.Background(), service.MetricRateLimited) },
	)
	defer inquiryLimiter.Close()

	// Handlers
	healthHandler := handler.NewHealthHandler(db, redisClient)
	inquiryHandler := handler.NewInquiryHandler(inquiryService)
	productHandler := handler.NewProductHandler(productReader, productService, locationService)
	auditHandler := handler.NewAuditHandler(auditLogger)
	metricsHandler := handler.NewMetricsHandler(metrics, auditLogger, cfg.Store.Type)
	securityHandler := handler.NewSecurityHandler(auditLogger, metrics, logger)
	authHandler := handler.NewAuthHandler(tokenService, profileRepo, auditLogger)

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		TokenService: tokenService,
		Audit:        auditLogger,
	})

	r := router.New(router.Config{
		Logger:          logger,
		Audit:           auditLogger,
		HealthHandler:   healthHandler,
		AuthHandler:     authHandler,
		InquiryHandler:  inquiryHandler,
		ProductHandler:  productHandler,
		AuditHandler:    auditHandler,
		MetricsHandler:  metricsHandler,
		SecurityHandler: securityHandler,
		AuthMiddleware:  authMiddleware,
		InquiryLimiter:  inquiryLimiter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	// Drain pending audit writes before closing the stores.
	if err := auditLogger.Close(); err != nil {
		logger.Error("audit logger close error", zap.Error(err))
	}

	if memCache != nil {
		memCache.Close()
	}

	logger.Info("server stopped")
}

// newLogger builds the zap logger for the configured environment.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.App.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
