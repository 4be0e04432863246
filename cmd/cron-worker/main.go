package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/sitecompliance-backend/internal/avcbs"
	"github.com/angelmondragon/sitecompliance-backend/internal/calendar"
	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/internal/cron"
	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/internal/locks"
	"github.com/angelmondragon/sitecompliance-backend/internal/references"
	"github.com/angelmondragon/sitecompliance-backend/internal/residues"
	"github.com/angelmondragon/sitecompliance-backend/pkg/config"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/metrics"
	"github.com/angelmondragon/sitecompliance-backend/pkg/migrate"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox"
	"github.com/angelmondragon/sitecompliance-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run the jobs a single time and exit")
	jobsFlag := flag.String("jobs", "", "comma separated job names for -once (default: all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	registry, err := buildJobs(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	lock, err := locks.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+envOrLocal(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
	})

	if *once {
		logg.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx, splitJobs(*jobsFlag)...); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	engine := compliance.NewEngine(compliance.OptionsFromConfig(cfg.Compliance))
	complianceMetrics := metrics.NewComplianceMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(conn)
	notices := outbox.NewService(outboxRepo, logg)

	licenseRepo := licenses.NewRepository(conn)
	avcbRepo := avcbs.NewRepository(conn)
	conditionalRepo := conditionals.NewRepository(conn)

	conditionalLocks, err := locks.NewKeyed(redisClient, redisClient.ConditionalLockKey, cfg.Compliance.ConditionalLockTTL)
	if err != nil {
		return nil, err
	}
	conditionalsSvc, err := conditionals.NewService(conditionals.ServiceParams{
		Repo:    conditionalRepo,
		Refs:    references.NewGormRegistry(conn),
		DB:      dbClient,
		Locks:   conditionalLocks,
		Outbox:  notices,
		Engine:  engine,
		Metrics: complianceMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
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
		return nil, err
	}

	statusJob, err := cron.NewComplianceStatusJob(cron.ComplianceStatusJobParams{
		Logger:        logg,
		DB:            dbClient,
		Licenses:      licenseRepo,
		Avcbs:         avcbRepo,
		Conditionals:  conditionalRepo,
		WasteHandlers: residues.NewRepository(conn),
		Advancer:      conditionalsSvc,
		Outbox:        notices,
		Engine:        engine,
		Metrics:       complianceMetrics,
	})
	if err != nil {
		return nil, err
	}
	reminderJob, err := cron.NewReminderDispatchJob(cron.ReminderDispatchJobParams{
		Logger:   logg,
		Calendar: calendarSvc,
	})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(statusJob, reminderJob, retentionJob), nil
}

func splitJobs(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
