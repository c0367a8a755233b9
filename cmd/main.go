package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campaign-fulfillment/internal/adapter/creative"
	"campaign-fulfillment/internal/adapter/host"
	"campaign-fulfillment/internal/adapter/http"
	"campaign-fulfillment/internal/adapter/memory"
	"campaign-fulfillment/internal/adapter/notify"
	"campaign-fulfillment/internal/adapter/postgres"
	"campaign-fulfillment/internal/adapter/usecase"
	"campaign-fulfillment/internal/config"
	"campaign-fulfillment/internal/config/configs"
	"campaign-fulfillment/internal/core/port"
	"campaign-fulfillment/internal/db"
	"campaign-fulfillment/internal/metrics"
)

// main is the entry point of the fulfillment service. It loads configuration,
// selects the storage backend, optionally runs database migrations and
// seeding, wires the engine and starts the HTTP server. On receiving a
// termination signal it gracefully shuts down the server.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		return
	}

	var logger *slog.Logger
	{
		// Initialise structured logger based on configuration.
		var handler slog.Handler
		opts := cfg.Log.HandlerOptions()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, opts)
		default:
			handler = slog.NewTextHandler(os.Stdout, opts)
		}
		logger = slog.New(handler).With(slog.String("env", cfg.Env))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		repos    usecase.Repositories
		registry port.InstanceRegistry
	)
	switch cfg.Store.Kind() {
	case configs.BackendMemory:
		store := memory.NewStore()
		repos = usecase.Repositories{
			Documents:   store,
			Advertisers: store,
			Creatives:   store,
			Campaigns:   store,
			Flights:     store,
		}
		registry = store
		logger.Warn("using in-memory store, state is lost on exit")
	default:
		// Optionally run migrations if configured. We use the Psql sub‑config.
		if cfg.Psql.RunMigrations {
			if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
				logger.Error("migration error", slog.Any("error", err))
				return
			}
			logger.Info("migrations applied successfully")
		}

		pool, err := db.NewPostgresPool(ctx, cfg.Psql)
		if err != nil {
			logger.Error("database connection error", slog.Any("error", err))
			return
		}
		defer pool.Close()

		if cfg.Psql.Seed {
			if err = db.Seed(ctx, pool); err != nil {
				logger.Error("seed error", slog.Any("error", err))
				return
			}
			logger.Info("demo data seeded", slog.String("tenant", db.SeedTenant.String()))
		}

		repo := postgres.NewRepository(pool)
		repos = usecase.Repositories{
			Documents:   postgres.NewDocumentStore(pool),
			Advertisers: repo,
			Creatives:   repo,
			Campaigns:   repo,
			Flights:     repo,
		}
		registry = postgres.NewInstanceRegistry(pool)
	}

	var notifier port.Notifier = notify.NewLogNotifier(logger)
	if cfg.Notify.WebhookURL != nil {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL.String(), nil, cfg.Notify.Timeout)
	}
	inspector := creative.NewInspector(cfg.Creative.Verify, nil, cfg.Creative.Timeout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	recon := usecase.NewReconciler(repos, m, logger)
	ops := usecase.NewHandlers(recon, inspector, logger, usecase.WithLeaseTTL(cfg.Lease.TTL))
	engine := usecase.NewEngine(recon, ops, notifier, m, logger)
	leases := usecase.NewLeaseCoordinator(recon, ops, m, logger)
	runtime := host.New(engine, registry, logger)

	handler := httpadapter.NewHandler(runtime, engine, leases, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	logger.Info("server listening",
		slog.Int("port", int(cfg.HTTP.Port)),
		slog.String("store", cfg.Store.Kind()),
	)
	if err = serve(ctx, srv, cfg.HTTP.ShutdownTimeout, logger); err != nil {
		logger.Error("server error", slog.Any("error", err))
		return
	}
	exitCode = 0
}
