package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coopvest/coopvest-backend/internal/billing"
	"github.com/coopvest/coopvest-backend/internal/cron"
	"github.com/coopvest/coopvest-backend/internal/memberships"
	"github.com/coopvest/coopvest-backend/internal/notifications"
	"github.com/coopvest/coopvest-backend/internal/plans"
	"github.com/coopvest/coopvest-backend/internal/subscriptions"
	"github.com/coopvest/coopvest-backend/pkg/config"
	"github.com/coopvest/coopvest-backend/pkg/db"
	"github.com/coopvest/coopvest-backend/pkg/logger"
	"github.com/coopvest/coopvest-backend/pkg/metrics"
	"github.com/coopvest/coopvest-backend/pkg/migrate"
	"github.com/coopvest/coopvest-backend/pkg/paystack"
	"github.com/coopvest/coopvest-backend/pkg/pubsub"
	"github.com/coopvest/coopvest-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer pubsubClient.Close()

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	notificationsRepo := notifications.NewRepository(gormDB)

	planCatalog, err := plans.NewService(plans.ServiceParams{
		Repo:         plans.NewRepository(gormDB),
		FreePlanCode: cfg.Billing.FreePlanCode,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plan catalog", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notificationsRepo,
		Admins:    memberships.NewRepository(gormDB),
		Publisher: pubsubClient.BillingPublisher(),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	subscriptionsSvc, err := subscriptions.NewService(subscriptions.ServiceParams{
		BillingRepo:       billing.NewRepository(gormDB),
		Plans:             planCatalog,
		Provider:          paystackClient,
		TransactionRunner: dbClient,
		Notifier:          notificationsSvc,
		Metrics:           metrics.NewBillingMetrics(prometheus.DefaultRegisterer),
		Currency:          cfg.Billing.Currency,
		CallbackURL:       cfg.Paystack.CallbackURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewPeriodSweepJob(cron.PeriodSweepJobParams{
		Logger:  logg,
		Sweeper: subscriptionsSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create period sweep job", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cfg.Cron.LockKey), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, cleanupJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
