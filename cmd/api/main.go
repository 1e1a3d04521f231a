package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/identity"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
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

	redisStore := persistence.NewRedis(cfg.Redis, logger)
	defer redisStore.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	employeeRepo := repository.NewEmployeeRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	tagRepo := repository.NewTagRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	ratingRepo := repository.NewRatingRepository(pool)

	resolver := identity.NewResolver(employeeRepo, userRepo)
	evaluator := policy.NewEvaluator(policy.Config{
		AllowWithoutEmployee: cfg.Policy.AllowViewWithoutEmployee,
	}, resolver, employeeRepo, customerRepo)

	authService := service.NewAuthService(cfg, userRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		TagRepo:    tagRepo,
		TeamRepo:   teamRepo,
		Resolver:   resolver,
		Policy:     evaluator,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		MessageRepo: messageRepo,
		TicketRepo:  ticketRepo,
		Policy:      evaluator,
		Dispatcher:  dispatcher,
	})
	ratingService := service.NewRatingService(service.RatingDependencies{
		RatingRepo:   ratingRepo,
		TicketRepo:   ticketRepo,
		CustomerRepo: customerRepo,
		Resolver:     resolver,
		Dispatcher:   dispatcher,
	})
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{
		TicketRepo:  ticketRepo,
		RatingRepo:  ratingRepo,
		Policy:      evaluator,
		Cache:       redisStore.Client,
		CacheTTL:    cfg.Analytics.CacheTTL(),
		TrendMonths: cfg.Analytics.TrendMonths,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(dispatcher, redisStore.Client, logger)
	worker.StartNotificationWorker(notificationService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisStore),
		Session:        handlers.NewSessionHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Messages:       handlers.NewMessagesHandler(messageService),
		Ratings:        handlers.NewRatingsHandler(ratingService),
		Analysis:       handlers.NewAnalysisHandler(analyticsService, metrics),
		Channels:       handlers.NewChannelHandler(ticketService),
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
