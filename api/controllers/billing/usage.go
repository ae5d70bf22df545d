package billing

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/api/responses"
	"github.com/coopvest/coopvest-backend/internal/usage"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
)

type UsageService interface {
	ComputeUsage(ctx context.Context, cooperativeID uuid.UUID) (*usage.Snapshot, error)
	CheckLimit(ctx context.Context, cooperativeID uuid.UUID, limitType enums.LimitType) (*usage.LimitDecision, error)
}

// GetUsage returns the cooperative's current resource counts.
func GetUsage(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}
		cid, _, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.ComputeUsage(r.Context(), cid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"usage": snapshot})
	}
}

// CheckLimit reports whether the cooperative may create one more record of the
// requested resource under its effective plan.
func CheckLimit(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}
		cid, _, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limitType, err := enums.ParseLimitType(strings.TrimSpace(r.URL.Query().Get("type")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid limit type"))
			return
		}

		decision, err := svc.CheckLimit(r.Context(), cid, limitType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decision)
	}
}
