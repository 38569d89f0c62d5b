package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/defect-tracker/internal/api/http"
	"github.com/spec-kit/defect-tracker/internal/api/http/handlers"
	"github.com/spec-kit/defect-tracker/internal/auth"
	"github.com/spec-kit/defect-tracker/internal/config"
	"github.com/spec-kit/defect-tracker/internal/events"
	"github.com/spec-kit/defect-tracker/internal/observability"
	"github.com/spec-kit/defect-tracker/internal/persistence"
	"github.com/spec-kit/defect-tracker/internal/repository"
	"github.com/spec-kit/defect-tracker/internal/service"
	"github.com/spec-kit/defect-tracker/internal/worker"
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
	resetRepo := repository.NewPasswordResetRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	lookupRepo := repository.NewLookupRepository(pool)
	defectRepo := repository.NewDefectRepository(pool)
	defectStore := repository.NewDefectStore(pool)
	historyRepo := repository.NewDefectHistoryRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	projectService := service.NewProjectService(projectRepo, lookupRepo)
	lookupService := service.NewLookupService(lookupRepo, redis.Client, cfg.Redis.LookupCacheTTL(), logger)
	defectService := service.NewDefectService(service.DefectDependencies{
		DefectRepo:     defectRepo,
		Store:          defectStore,
		HistoryRepo:    historyRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		ProjectRepo:    projectRepo,
		UserRepo:       userRepo,
		LookupRepo:     lookupRepo,
		Dispatcher:     dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Projects:       handlers.NewProjectsHandler(projectService),
		Lookups:        handlers.NewLookupsHandler(lookupService),
		Defects:        handlers.NewDefectsHandler(defectService),
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
