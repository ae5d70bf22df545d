package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/api/responses"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
)

type AdminChecker interface {
	IsActiveAdmin(ctx context.Context, cooperativeID, userID uuid.UUID) (bool, error)
}

// RequireCooperativeAdmin resolves the {cooperativeID} URL parameter, verifies
// the authenticated user holds an active admin membership there, and seeds the
// cooperative into the request context.
func RequireCooperativeAdmin(checker AdminChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if checker == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "membership checker unavailable"))
				return
			}

			userID := UserIDFromContext(ctx)
			if userID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			uid, err := uuid.Parse(userID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
				return
			}

			raw := chi.URLParam(r, "cooperativeID")
			cid, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cooperative id"))
				return
			}

			ok, err := checker.IsActiveAdmin(ctx, cid, uid)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check cooperative membership"))
				return
			}
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cooperative admin role required"))
				return
			}

			ctx = context.WithValue(ctx, ctxCooperativeID, cid.String())
			if logg != nil {
				ctx = logg.WithCooperativeID(ctx, cid.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
