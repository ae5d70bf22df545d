package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coopvest/coopvest-backend/api/controllers"
	billingcontrollers "github.com/coopvest/coopvest-backend/api/controllers/billing"
	webhookcontrollers "github.com/coopvest/coopvest-backend/api/controllers/webhooks"
	"github.com/coopvest/coopvest-backend/api/middleware"
	"github.com/coopvest/coopvest-backend/internal/activity"
	"github.com/coopvest/coopvest-backend/internal/notifications"
	subscriptionsvc "github.com/coopvest/coopvest-backend/internal/subscriptions"
	paystackwebhook "github.com/coopvest/coopvest-backend/internal/webhooks/paystack"
	"github.com/coopvest/coopvest-backend/pkg/config"
	"github.com/coopvest/coopvest-backend/pkg/logger"
	"github.com/coopvest/coopvest-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Redis         *redis.Client
	HealthDeps    map[string]controllers.Pinger
	AdminChecker  middleware.AdminChecker
	PlanCatalog   billingcontrollers.PlanCatalog
	Subscriptions subscriptionsvc.Service
	Usage         billingcontrollers.UsageService
	Notifications notifications.Service
	Activity      activity.Service
	WebhookSvc    webhookcontrollers.PaystackWebhookService
	WebhookGuard  *paystackwebhook.DeliveryGuard
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.HealthDeps))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(
			params.WebhookSvc,
			cfg.Paystack.SecretKey,
			params.WebhookGuard,
			paystackwebhook.EventIDFromBody,
			logg,
		))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/billing/plans", billingcontrollers.ListPlans(params.PlanCatalog, logg))

		r.Route("/cooperatives/{cooperativeID}", func(r chi.Router) {
			r.Use(middleware.RequireCooperativeAdmin(params.AdminChecker, logg))
			r.Use(middleware.Idempotency(params.Redis, logg))

			r.Route("/billing", func(r chi.Router) {
				r.Get("/subscription", billingcontrollers.GetSubscription(params.Subscriptions, logg))
				r.Post("/subscription/select", billingcontrollers.SelectPlan(params.Subscriptions, logg))
				r.Post("/subscription/change", billingcontrollers.ChangePlan(params.Subscriptions, logg))
				r.Post("/subscription/cancel", billingcontrollers.CancelSubscription(params.Subscriptions, logg))
				r.Get("/payments", billingcontrollers.ListPayments(params.Subscriptions, logg))
				r.Post("/payments/{reference}/verify", billingcontrollers.VerifyPayment(params.Subscriptions, logg))
				r.Get("/usage", billingcontrollers.GetUsage(params.Usage, logg))
				r.Get("/limits", billingcontrollers.CheckLimit(params.Usage, logg))
			})

			r.Get("/activity", controllers.ListActivity(params.Activity, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(params.Notifications, logg))
				r.Post("/{notificationID}/read", controllers.MarkNotificationRead(params.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
			})
		})
	})

	return r
}
