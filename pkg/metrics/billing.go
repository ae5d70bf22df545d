package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics tracks webhook and payment reconciliation outcomes.
type BillingMetrics struct {
	webhookReceived  *prometheus.CounterVec
	webhookDuplicate *prometheus.CounterVec
	webhookFailed    *prometheus.CounterVec
	paymentsConfirmed prometheus.Counter
	paymentsFailed    prometheus.Counter
}

// NewBillingMetrics registers the billing metrics on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received_total",
		Help: "Inbound provider webhook events by type.",
	}, []string{"event_type"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate_total",
		Help: "Webhook events short-circuited as already processed.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed_total",
		Help: "Webhook events whose dispatch raised an error.",
	}, []string{"event_type"})
	confirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "subscription_payments_confirmed_total",
		Help: "Subscription payments confirmed successfully.",
	})
	pfailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "subscription_payments_failed_total",
		Help: "Subscription payments marked failed.",
	})
	reg.MustRegister(received, duplicate, failed, confirmed, pfailed)
	return &BillingMetrics{
		webhookReceived:   received,
		webhookDuplicate:  duplicate,
		webhookFailed:     failed,
		paymentsConfirmed: confirmed,
		paymentsFailed:    pfailed,
	}
}

// IncWebhookReceived counts an inbound event of the given type.
func (b *BillingMetrics) IncWebhookReceived(eventType string) {
	if b == nil || b.webhookReceived == nil {
		return
	}
	b.webhookReceived.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncWebhookDuplicate counts an already-processed redelivery.
func (b *BillingMetrics) IncWebhookDuplicate(eventType string) {
	if b == nil || b.webhookDuplicate == nil {
		return
	}
	b.webhookDuplicate.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncWebhookFailed counts a dispatch error.
func (b *BillingMetrics) IncWebhookFailed(eventType string) {
	if b == nil || b.webhookFailed == nil {
		return
	}
	b.webhookFailed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncPaymentConfirmed counts a payment flipped to success.
func (b *BillingMetrics) IncPaymentConfirmed() {
	if b == nil || b.paymentsConfirmed == nil {
		return
	}
	b.paymentsConfirmed.Inc()
}

// IncPaymentFailed counts a payment marked failed.
func (b *BillingMetrics) IncPaymentFailed() {
	if b == nil || b.paymentsFailed == nil {
		return
	}
	b.paymentsFailed.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
