package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/coopvest/coopvest-backend/api/responses"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
	"github.com/coopvest/coopvest-backend/pkg/paystack"
)

// Paystack caps inbound webhook bodies well above any event the provider
// actually sends.
const maxWebhookBody = 1 << 20

type PaystackWebhookService interface {
	HandleEvent(ctx context.Context, body []byte) error
}

type paystackWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type eventIdentifier func(body []byte) string

// PaystackWebhook verifies and dispatches Paystack billing events. The
// endpoint always acknowledges verified deliveries with 200 so the provider
// stops retrying; processing errors are recorded on the stored event and
// picked up again on the next redelivery.
func PaystackWebhook(svc PaystackWebhookService, secret string, guard paystackWebhookGuard, identify eventIdentifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}
		if identify == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event identifier unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("X-Paystack-Signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "paystack signature missing"))
			return
		}
		if !paystack.VerifySignature(secret, payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "paystack signature mismatch"))
			return
		}

		eventID := identify(payload)
		claimed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if claimed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, payload); err != nil {
			// Let the provider's retry reprocess it.
			_ = guard.Release(ctx, eventID)
			if logg != nil {
				logg.Error(ctx, "paystack event processing failed", err)
			}
		}

		responses.WriteSuccess(w, nil)
	}
}
