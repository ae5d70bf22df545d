package billing

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/api/middleware"
	"github.com/coopvest/coopvest-backend/api/responses"
	"github.com/coopvest/coopvest-backend/api/validators"
	"github.com/coopvest/coopvest-backend/internal/subscriptions"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
	"github.com/coopvest/coopvest-backend/pkg/pagination"
)

type selectPlanRequest struct {
	PlanID       string `json:"plan_id" validate:"required"`
	BillingCycle string `json:"billing_cycle" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
}

type changePlanRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
}

type cancelRequest struct {
	Immediate bool   `json:"immediate"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

func identityFromRequest(r *http.Request) (cooperativeID, userID uuid.UUID, err error) {
	cid, parseErr := uuid.Parse(middleware.CooperativeIDFromContext(r.Context()))
	if parseErr != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cooperative context missing")
	}
	uid, parseErr := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if parseErr != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return cid, uid, nil
}

// GetSubscription returns the cooperative's live subscription record.
func GetSubscription(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		cid, _, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Get(r.Context(), cid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"subscription": sub})
	}
}

// SelectPlan starts a subscription on the named plan. Free plans activate
// immediately; paid plans come back pending with a hosted checkout link.
func SelectPlan(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		cid, uid, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload selectPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		planID, err := uuid.Parse(strings.TrimSpace(payload.PlanID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan_id"))
			return
		}
		cycle, err := enums.ParseBillingCycle(strings.TrimSpace(payload.BillingCycle))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing_cycle"))
			return
		}

		result, err := svc.SelectPlan(r.Context(), cid, subscriptions.SelectPlanInput{
			PlanID:       planID,
			BillingCycle: cycle,
			Email:        strings.TrimSpace(payload.Email),
			ActorID:      uid,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ChangePlan switches the cooperative to a different plan. Upgrades are
// charged before the switch applies; downgrades apply immediately.
func ChangePlan(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		cid, uid, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changePlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		planID, err := uuid.Parse(strings.TrimSpace(payload.PlanID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan_id"))
			return
		}

		result, err := svc.ChangePlan(r.Context(), cid, subscriptions.ChangePlanInput{
			PlanID:  planID,
			Email:   strings.TrimSpace(payload.Email),
			ActorID: uid,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CancelSubscription schedules or applies a cancellation back to the free plan.
func CancelSubscription(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		cid, uid, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Cancel(r.Context(), cid, subscriptions.CancelInput{
			Immediate: payload.Immediate,
			Reason:    validators.SanitizeString(payload.Reason, 500),
			ActorID:   uid,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"subscription": sub})
	}
}

// VerifyPayment re-checks a payment reference against the provider and applies
// the settled outcome. Safe to call repeatedly.
func VerifyPayment(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		if _, _, err := identityFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required"))
			return
		}

		payment, err := svc.VerifyPayment(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payment": payment})
	}
}

// ListPayments returns the cooperative's payment history, newest first.
func ListPayments(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		cid, _, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := subscriptions.ListPaymentsParams{
			CooperativeID: cid,
			Limit:         limit,
			Cursor:        strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParsePaymentStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status"))
				return
			}
			params.Status = &status
		}

		payments, cursor, err := svc.ListPayments(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := map[string]any{"payments": payments}
		if cursor != nil {
			resp["cursor"] = pagination.EncodeCursor(*cursor)
		}
		responses.WriteSuccess(w, resp)
	}
}
