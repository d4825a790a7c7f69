package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/cache"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/resilience"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var userRepo repository.UserRepository
	var resetRepo repository.PasswordResetRepository
	if cfg.Store.Driver == "memory" || pg.PoolHandle() == nil {
		logger.Warn("using in-memory user store")
		userRepo = repository.NewMemoryUserRepository()
		resetRepo = repository.NewMemoryPasswordResetRepository()
	} else {
		pool := pg.PoolHandle()
		userRepo = repository.NewUserRepository(pool)
		resetRepo = repository.NewPasswordResetRepository(pool)
	}

	metrics := observability.NewMetrics()

	guard := resilience.NewGuardFromSettings(
		resilience.BreakerSettings{
			Name:             cfg.Breaker.Name,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			ErrorPercent:     cfg.Breaker.ErrorPercent,
			ResetTimeout:     cfg.Breaker.ResetTimeout(),
			CallTimeout:      cfg.Breaker.CallTimeout(),
			Window:           cfg.Breaker.Window(),
		},
		resilience.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			MinBackoff:  cfg.Retry.MinBackoff(),
			MaxBackoff:  cfg.Retry.MaxBackoff(),
		},
		logger, metrics)

	var cacheBackend cache.Backend
	if cfg.Cache.Driver == "memory" {
		cacheBackend = cache.NewMemoryBackend()
	} else {
		cacheBackend = cache.NewRedisBackend(redis.Client)
	}
	profileCache := cache.New(cacheBackend, cfg.Cache.KeyPrefix, cfg.Cache.DefaultTTL(), logger)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Guard:             guard,
		Cache:             profileCache,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		Guard:      guard,
		Cache:      profileCache,
		ReadTTL:    cfg.Cache.TTL(),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, guard.Breaker())
	usersHandler := handlers.NewUsersHandler(authService)
	profileHandler := handlers.NewProfileHandler(userService, authService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          usersHandler,
		Profile:        profileHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
