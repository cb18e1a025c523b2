package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/invoices"
	"github.com/meridian-erp/meridian-erp/internal/maintenance"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/stores"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/vendors"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/orders"
	"github.com/meridian-erp/meridian-erp/internal/payments"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/users"
	"github.com/meridian-erp/meridian-erp/jobs"
	"github.com/meridian-erp/meridian-erp/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.Files, migrations.Dir); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacService := rbac.NewService(pool)
	guard := rbac.Middleware{Service: rbacService, Logger: logger}

	usersService := users.NewService(users.NewRepository(pool))
	usersHandler := users.NewHandler(usersService, guard)

	storesService := stores.NewService(stores.NewRepository(pool))
	storesHandler := stores.NewHandler(storesService, guard)

	productsService := products.NewService(products.NewRepository(pool))
	productsHandler := products.NewHandler(productsService, guard)

	vendorsService := vendors.NewService(vendors.NewRepository(pool))
	vendorsHandler := vendors.NewHandler(vendorsService, guard)

	ordersService := orders.NewService(orders.NewRepository(pool), productsService, auditLogger, logger)
	ordersHandler := orders.NewHandler(ordersService, guard)

	invoicesService := invoices.NewService(invoices.NewRepository(pool), ordersService, storesService, productsService, auditLogger, logger)
	invoicesHandler := invoices.NewHandler(invoicesService, guard)

	paymentsService := payments.NewService(payments.NewRepository(pool), auditLogger, logger)
	paymentsHandler := payments.NewHandler(paymentsService, guard)

	inventoryService := inventory.NewService(inventory.NewRepository(pool))
	inventoryHandler := inventory.NewHandler(inventoryService, guard)

	procurementService := procurement.NewService(procurement.NewRepository(pool), idempotencyStore, auditLogger, logger)
	procurementHandler := procurement.NewHandler(procurementService, guard)

	maintenanceService := maintenance.NewService(pool, auditLogger, logger)
	maintenanceHandler := maintenance.NewHandler(maintenanceService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		StoresHandler:      storesHandler,
		ProductsHandler:    productsHandler,
		VendorsHandler:     vendorsHandler,
		OrdersHandler:      ordersHandler,
		InvoicesHandler:    invoicesHandler,
		PaymentsHandler:    paymentsHandler,
		ProcurementHandler: procurementHandler,
		InventoryHandler:   inventoryHandler,
		MaintenanceHandler: maintenanceHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
