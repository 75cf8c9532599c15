package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/backoffice/internal/app"
	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/auth"
	"github.com/odyssey-erp/backoffice/internal/customers"
	"github.com/odyssey-erp/backoffice/internal/finance"
	"github.com/odyssey-erp/backoffice/internal/inventory"
	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/observability"
	"github.com/odyssey-erp/backoffice/internal/platform/cache"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/purchasing"
	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
	"github.com/odyssey-erp/backoffice/internal/sales"
	"github.com/odyssey-erp/backoffice/internal/setup"
	"github.com/odyssey-erp/backoffice/internal/shared"
	"github.com/odyssey-erp/backoffice/jobs"
)

func main() {
	if app.SkipStartup(nil, "server") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := cfg.RedisOptions()
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobs.NewMetrics(metrics.Registerer())

	var mailer notify.Mailer
	if cfg.NotifyMailEnabled {
		jobClient := jobs.NewClient(redisOpts.Asynq(), jobMetrics)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		mailer = jobClient
	}
	emitter := notify.NewEmitter(mailer, logger)

	sessions := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	rbacRepo := rbac.NewRepository(pool)
	rbacService := rbac.NewService(rbacRepo, logger)
	resolver := rbac.NewResolver(sessions, rbacRepo)

	authService := auth.NewService(auth.NewRepository(pool), sessions, emitter, logger)
	inbox := notify.NewService(notify.NewRepository(pool))
	customerService := customers.NewService(customers.NewRepository(pool), cfg.CustomerIDPrefix, logger)
	salesService := sales.NewService(sales.NewRepository(pool), emitter, logger)
	purchasingService := purchasing.NewService(purchasing.NewRepository(pool), emitter, logger)
	inventoryService := inventory.NewService(inventory.NewRepository(pool), logger)
	financeService := finance.NewService(finance.NewRepository(pool), logger)

	setupRepo := setup.NewRepository(pool)
	auditService := audit.NewService(audit.NewRepository(pool))

	registry := rpc.NewRegistry(logger, metrics)
	auth.NewHandler(authService, inbox, sessions).Register(registry)
	customers.NewHandler(customerService).Register(registry)
	sales.NewHandler(salesService).Register(registry)
	purchasing.NewHandler(purchasingService).Register(registry)
	inventory.NewHandler(inventoryService).Register(registry)
	finance.NewHandler(financeService).Register(registry)
	setup.NewHandler(
		setup.NewUserService(setupRepo, logger),
		rbacService,
		auditService,
		setup.NewSearcher(setupRepo),
	).Register(registry)
	logger.Info("procedures registered", slog.Int("count", len(registry.Names())))

	inspector := asynq.NewInspector(redisOpts.Asynq())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		Registry:   registry,
		Sessions:   rbac.Middleware{Resolver: resolver, Tokens: sessions, Logger: logger},
		Metrics:    metrics,
		JobHandler: jobs.NewHandler(inspector, logger),
		Checks: map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})

	server := app.NewServer(cfg, router)
	if err := app.Serve(ctx, server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
