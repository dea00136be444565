package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/rhowell/njord/internal"
	"github.com/rhowell/njord/internal/domain"
	"github.com/rhowell/njord/internal/handler"
	"github.com/rhowell/njord/internal/memory"
	"github.com/rhowell/njord/internal/middleware"
	"github.com/rhowell/njord/internal/notify"
	"github.com/rhowell/njord/internal/postgres"
	"github.com/rhowell/njord/internal/router"
	"github.com/rhowell/njord/internal/telemetry"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize the notification sink
	var sink domain.NotificationSink = notify.NewNoopSink()
	if cfg.Nats.URL != "" {
		logger.Info("Connecting to NATS...", "url", cfg.Nats.URL)
		natsSink, err := notify.NewNatsSink(cfg.Nats.URL, cfg.Nats.SubjectPrefix, logger)
		if err != nil {
			return fmt.Errorf("NATS connection failed: %w", err)
		}
		defer natsSink.Close()
		sink = natsSink
		logger.Info("NATS connection established")
	}

	// Initialize the storage backend and services
	var (
		catalogService  domain.CatalogService
		cartService     domain.CartService
		checkoutService domain.CheckoutService
		pinger          handler.Pinger
	)

	switch cfg.Backend {
	case "postgres":
		// Initialize database/sql connection for migrations
		logger.Info("Connecting to database...")
		sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}

		if err := sqlDB.Ping(); err != nil {
			sqlDB.Close()
			return fmt.Errorf("database ping failed: %w", err)
		}
		logger.Info("Database connection established")

		// Run migrations
		logger.Info("Running database migrations...")
		if err := internal.RunMigrations(sqlDB); err != nil {
			sqlDB.Close()
			return fmt.Errorf("migration failed: %w", err)
		}
		sqlDB.Close()
		logger.Info("Database migrations completed successfully")

		// Initialize pgx connection pool for the application
		pool, err := postgres.Connect(ctx, cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		ledger := postgres.NewLedger(pool, sink)
		catalogService = postgres.NewCatalog(pool, sink)
		cartService = postgres.NewCartService(pool, ledger)
		checkoutService = postgres.NewCheckoutService(pool)
		pinger = pool

	case "memory":
		logger.Info("Using in-memory backend; data will not survive restarts")
		store := memory.NewStore()
		ledger := memory.NewLedger(store, sink)
		catalogService = memory.NewCatalog(store, sink)
		cartService = memory.NewCartService(store, ledger)
		checkoutService = memory.NewCheckoutService(store)
	}

	// Initialize Prometheus metrics
	metrics := middleware.NewMetrics(cfg.Metrics.Namespace)
	business := telemetry.NewBusinessMetrics(nil, cfg.Metrics.Namespace)

	// Create the router and register routes
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.WithRequestLogger(logger),
	)

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	handler.NewHealthHandler(pinger).RegisterRoutes(r)
	handler.NewItemHandler(catalogService, business).RegisterRoutes(r)
	handler.NewCartHandler(cartService, business).RegisterRoutes(r)
	handler.NewOrderHandler(checkoutService, business).RegisterRoutes(r)

	// Start the server
	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr, "backend", cfg.Backend)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
