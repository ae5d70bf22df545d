package paystackwebhook

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coopvest/coopvest-backend/internal/subscriptions"
	"github.com/coopvest/coopvest-backend/pkg/db/models"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
	"github.com/coopvest/coopvest-backend/pkg/metrics"
	"github.com/coopvest/coopvest-backend/pkg/paystack"
)

// lifecycle is the slice of the subscription service the reconciler drives.
type lifecycle interface {
	ApplyPaymentSuccess(ctx context.Context, details subscriptions.ProviderPayment) error
	ApplyPaymentFailure(ctx context.Context, reference, reason string) error
	DisableByCustomerCode(ctx context.Context, customerCode, reason string) error
}

// eventLog is the slice of the billing repository that stores deliveries.
type eventLog interface {
	FindPaymentByReference(ctx context.Context, reference string) (*models.SubscriptionPayment, error)
	FindWebhookEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	UpsertWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
	MarkWebhookProcessed(ctx context.Context, eventID string, processedAt time.Time) error
	MarkWebhookError(ctx context.Context, eventID string, message string) error
}

type ServiceParams struct {
	BillingRepo   eventLog
	Subscriptions lifecycle
	Logger        *logger.Logger
	Metrics       *metrics.BillingMetrics
	Now           func() time.Time
}

// Service reconciles asynchronous provider events against the subscription
// lifecycle. Every side effect funnels through the lifecycle's settlement
// methods, so redelivered or out-of-order events converge on the same state.
type Service struct {
	billingRepo   eventLog
	subscriptions lifecycle
	logger        *logger.Logger
	metrics       *metrics.BillingMetrics
	now           func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.BillingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription lifecycle required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		billingRepo:   params.BillingRepo,
		subscriptions: params.Subscriptions,
		logger:        params.Logger,
		metrics:       params.Metrics,
		now:           now,
	}, nil
}

// EventID derives a stable dedup key for a delivery. Paystack does not assign
// event ids, so the key is the event type plus a digest of the raw body.
func EventID(eventType string, body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%s:%x", eventType, sum)
}

// EventIDFromBody derives the dedup key straight from a raw delivery, for
// callers that have not decoded the event yet. A body that fails to decode
// still gets a stable key under an empty event type.
func EventIDFromBody(body []byte) string {
	var envelope struct {
		Event string `json:"event"`
	}
	_ = json.Unmarshal(body, &envelope)
	return EventID(envelope.Event, body)
}

// HandleEvent records and dispatches one inbound delivery. A delivery whose
// event id was already processed short-circuits to a no-op; a dispatch error
// is stamped on the stored event row and returned so the caller can release
// its delivery guard for the provider's retry.
func (s *Service) HandleEvent(ctx context.Context, body []byte) error {
	var event paystack.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding webhook payload")
	}
	if event.Event == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event type is required")
	}

	eventID := EventID(event.Event, body)
	s.metrics.IncWebhookReceived(event.Event)

	existing, err := s.billingRepo.FindWebhookEvent(ctx, eventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up webhook event")
	}
	if existing != nil && existing.Processed {
		s.metrics.IncWebhookDuplicate(event.Event)
		s.logger.Info(s.logger.WithFields(ctx, map[string]any{
			"event_id": eventID,
		}), "webhook event already processed")
		return nil
	}

	if err := s.billingRepo.UpsertWebhookEvent(ctx, &models.WebhookEvent{
		EventID:   eventID,
		EventType: event.Event,
		Payload:   json.RawMessage(body),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording webhook event")
	}

	if err := s.dispatch(ctx, &event); err != nil {
		s.metrics.IncWebhookFailed(event.Event)
		if markErr := s.billingRepo.MarkWebhookError(ctx, eventID, err.Error()); markErr != nil {
			s.logger.Error(ctx, "marking webhook event error", markErr)
		}
		return err
	}

	if err := s.billingRepo.MarkWebhookProcessed(ctx, eventID, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking webhook event processed")
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *paystack.Event) error {
	switch event.Event {
	case paystack.EventChargeSuccess:
		var data paystack.TransactionData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding charge payload")
		}
		reference := strings.TrimSpace(data.Reference)
		if reference == "" {
			s.logger.Warn(ctx, "charge event carries no reference, ignoring")
			return nil
		}
		payment, err := s.billingRepo.FindPaymentByReference(ctx, reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up charge reference")
		}
		if payment == nil {
			s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
				"reference": reference,
			}), "charge references no known payment, ignoring")
			return nil
		}
		return s.subscriptions.ApplyPaymentSuccess(ctx, subscriptions.ProviderPaymentFromTransaction(&data))

	case paystack.EventInvoiceFailed:
		var data invoicePayload
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding invoice payload")
		}
		reference := strings.TrimSpace(data.Transaction.Reference)
		if reference == "" {
			s.logger.Warn(ctx, "invoice event carries no reference, ignoring")
			return nil
		}
		reason := strings.TrimSpace(data.Description)
		if reason == "" {
			reason = "invoice payment failed"
		}
		return s.subscriptions.ApplyPaymentFailure(ctx, reference, reason)

	case paystack.EventSubscriptionDisable:
		var data subscriptionPayload
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding subscription payload")
		}
		code := strings.TrimSpace(data.Customer.CustomerCode)
		if code == "" {
			s.logger.Warn(ctx, "subscription event carries no customer code, ignoring")
			return nil
		}
		return s.subscriptions.DisableByCustomerCode(ctx, code, "provider disabled the subscription")

	default:
		s.logger.Info(s.logger.WithFields(ctx, map[string]any{
			"event_type": event.Event,
		}), "ignoring unhandled webhook event")
		return nil
	}
}

type invoicePayload struct {
	Description string `json:"description"`
	Transaction struct {
		Reference string `json:"reference"`
	} `json:"transaction"`
}

type subscriptionPayload struct {
	SubscriptionCode string `json:"subscription_code"`
	Customer         struct {
		CustomerCode string `json:"customer_code"`
	} `json:"customer"`
}
