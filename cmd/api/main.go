package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coopvest/coopvest-backend/api/controllers"
	"github.com/coopvest/coopvest-backend/api/routes"
	"github.com/coopvest/coopvest-backend/internal/activity"
	"github.com/coopvest/coopvest-backend/internal/billing"
	"github.com/coopvest/coopvest-backend/internal/memberships"
	"github.com/coopvest/coopvest-backend/internal/notifications"
	"github.com/coopvest/coopvest-backend/internal/plans"
	"github.com/coopvest/coopvest-backend/internal/subscriptions"
	"github.com/coopvest/coopvest-backend/internal/usage"
	paystackwebhook "github.com/coopvest/coopvest-backend/internal/webhooks/paystack"
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

	billingMetrics := metrics.NewBillingMetrics(prometheus.DefaultRegisterer)

	gormDB := dbClient.DB()
	billingRepo := billing.NewRepository(gormDB)
	membershipsRepo := memberships.NewRepository(gormDB)

	planCatalog, err := plans.NewService(plans.ServiceParams{
		Repo:         plans.NewRepository(gormDB),
		FreePlanCode: cfg.Billing.FreePlanCode,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plan catalog", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notifications.NewRepository(gormDB),
		Admins:    membershipsRepo,
		Publisher: pubsubClient.BillingPublisher(),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	activitySvc, err := activity.NewService(activity.ServiceParams{
		Repo:   activity.NewRepository(gormDB),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}

	subscriptionsSvc, err := subscriptions.NewService(subscriptions.ServiceParams{
		BillingRepo:       billingRepo,
		Plans:             planCatalog,
		Provider:          paystackClient,
		TransactionRunner: dbClient,
		Notifier:          notificationsSvc,
		Audit:             activitySvc,
		Metrics:           billingMetrics,
		Currency:          cfg.Billing.Currency,
		CallbackURL:       cfg.Paystack.CallbackURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	usageSvc, err := usage.NewService(usage.ServiceParams{
		Repo:  usage.NewRepository(gormDB),
		Plans: subscriptionsSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create usage service", err)
		os.Exit(1)
	}

	webhookSvc, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		BillingRepo:   billingRepo,
		Subscriptions: subscriptionsSvc,
		Logger:        logg,
		Metrics:       billingMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := paystackwebhook.NewDeliveryGuard(redisClient, cfg.Paystack.WebhookIdemTTL, "paystack")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook delivery guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			Redis:  redisClient,
			HealthDeps: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"pubsub":   pubsubClient,
			},
			AdminChecker:  membershipsRepo,
			PlanCatalog:   planCatalog,
			Subscriptions: subscriptionsSvc,
			Usage:         usageSvc,
			Notifications: notificationsSvc,
			Activity:      activitySvc,
			WebhookSvc:    webhookSvc,
			WebhookGuard:  webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
