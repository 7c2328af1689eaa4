package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/backoffice-service/internal/api/http"
	"github.com/spec-kit/backoffice-service/internal/api/http/handlers"
	"github.com/spec-kit/backoffice-service/internal/audit"
	"github.com/spec-kit/backoffice-service/internal/auth"
	"github.com/spec-kit/backoffice-service/internal/authz"
	"github.com/spec-kit/backoffice-service/internal/cache"
	"github.com/spec-kit/backoffice-service/internal/config"
	"github.com/spec-kit/backoffice-service/internal/menu"
	"github.com/spec-kit/backoffice-service/internal/observability"
	"github.com/spec-kit/backoffice-service/internal/persistence"
	"github.com/spec-kit/backoffice-service/internal/ratelimit"
	"github.com/spec-kit/backoffice-service/internal/repository"
	"github.com/spec-kit/backoffice-service/internal/service"
	"github.com/spec-kit/backoffice-service/internal/session"
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

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	menuRepo := repository.NewMenuRepository(pool)
	loginLogRepo := repository.NewLoginLogRepository(pool)

	store := cache.NewRedisStore(redis.Client, cfg.Redis.OpTimeout)
	sessions := session.NewManager(store, logger, cfg.Auth)
	limiter := ratelimit.NewLimiter(store, logger, cfg.RateLimit.FailOpen)

	menuService := menu.NewService(menuRepo, menu.NewBuilder(logger))
	resolver := authz.NewResolver(roleRepo, menuService, logger)

	dispatcher := audit.NewDispatcher(loginLogRepo, logger, cfg.Audit.QueueDepth)
	defer dispatcher.Close()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		RoleRepo:   roleRepo,
		Sessions:   sessions,
		Resolver:   resolver,
		Limiter:    limiter,
		Dispatcher: dispatcher,
	})
	authMiddleware := auth.NewMiddleware(sessions)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, menuService),
		Menu:           handlers.NewMenuHandler(menuService),
		Monitor:        handlers.NewMonitorHandler(sessions, dispatcher),
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
