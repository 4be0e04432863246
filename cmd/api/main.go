package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/sitecompliance-backend/api/controllers"
	"github.com/angelmondragon/sitecompliance-backend/api/routes"
	"github.com/angelmondragon/sitecompliance-backend/internal/attachments"
	"github.com/angelmondragon/sitecompliance-backend/internal/avcbs"
	"github.com/angelmondragon/sitecompliance-backend/internal/calendar"
	"github.com/angelmondragon/sitecompliance-backend/internal/clients"
	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/internal/locks"
	"github.com/angelmondragon/sitecompliance-backend/internal/processes"
	"github.com/angelmondragon/sitecompliance-backend/internal/projects"
	"github.com/angelmondragon/sitecompliance-backend/internal/references"
	"github.com/angelmondragon/sitecompliance-backend/internal/reports"
	"github.com/angelmondragon/sitecompliance-backend/internal/residues"
	"github.com/angelmondragon/sitecompliance-backend/pkg/config"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/metrics"
	"github.com/angelmondragon/sitecompliance-backend/pkg/migrate"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox"
	"github.com/angelmondragon/sitecompliance-backend/pkg/redis"
	"github.com/angelmondragon/sitecompliance-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	blobStore, err := storage.New(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap attachment storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	complianceMetrics := metrics.NewComplianceMetrics(registry)

	deps, err := buildServices(cfg, logg, dbClient, redisClient, blobStore, complianceMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.Registry = registry
	deps.Metrics = httpMetrics
	deps.Redis = redisClient
	deps.Ready = map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"storage":  blobStore,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("HOSTNAME")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, blobStore storage.Store, complianceMetrics *metrics.ComplianceMetrics) (routes.Dependencies, error) {
	conn := dbClient.DB()
	engine := compliance.NewEngine(compliance.OptionsFromConfig(cfg.Compliance))
	refs := references.NewGormRegistry(conn)
	notices := outbox.NewService(outbox.NewRepository(conn), logg)

	licenseRepo := licenses.NewRepository(conn)
	avcbRepo := avcbs.NewRepository(conn)
	conditionalRepo := conditionals.NewRepository(conn)

	clientsSvc, err := clients.NewService(clients.NewRepository(conn), logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	projectsSvc, err := projects.NewService(projects.ServiceParams{
		Repo:         projects.NewRepository(conn),
		Refs:         refs,
		Licenses:     licenseRepo,
		Avcbs:        avcbRepo,
		Conditionals: conditionalRepo,
		Engine:       engine,
		Logger:       logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	licensesSvc, err := licenses.NewService(licenseRepo, refs, engine, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	avcbsSvc, err := avcbs.NewService(avcbRepo, refs, engine, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	conditionalLocks, err := locks.NewKeyed(redisClient, redisClient.ConditionalLockKey, cfg.Compliance.ConditionalLockTTL)
	if err != nil {
		return routes.Dependencies{}, err
	}
	conditionalsSvc, err := conditionals.NewService(conditionals.ServiceParams{
		Repo:    conditionalRepo,
		Refs:    refs,
		DB:      dbClient,
		Locks:   conditionalLocks,
		Outbox:  notices,
		Engine:  engine,
		Metrics: complianceMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	processesSvc, err := processes.NewService(processes.NewRepository(conn), refs, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	attachmentsSvc, err := attachments.NewService(attachments.ServiceParams{
		Repo:        attachments.NewRepository(conn),
		Refs:        refs,
		Store:       blobStore,
		MaxBytes:    cfg.Storage.MaxUploadBytes(),
		DownloadTTL: cfg.Storage.PresignExpiry,
		Logger:      logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	calendarSvc, err := calendar.NewService(calendar.ServiceParams{
		Repo:                calendar.NewRepository(conn),
		Licenses:            licenseRepo,
		Avcbs:               avcbRepo,
		Conditionals:        conditionalRepo,
		DB:                  dbClient,
		Outbox:              notices,
		DefaultReminderDays: cfg.Compliance.DefaultReminderDays,
		Metrics:             complianceMetrics,
		Logger:              logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	residuesSvc, err := residues.NewService(residues.NewRepository(conn), engine, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	reportsSvc, err := reports.NewService(licensesSvc, residuesSvc, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Clients:      clientsSvc,
		Projects:     projectsSvc,
		Licenses:     licensesSvc,
		Avcbs:        avcbsSvc,
		Conditionals: conditionalsSvc,
		Processes:    processesSvc,
		Attachments:  attachmentsSvc,
		Calendar:     calendarSvc,
		Residues:     residuesSvc,
		Reports:      reportsSvc,
	}, nil
}
