package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/api/middleware"
	"github.com/coopvest/coopvest-backend/api/responses"
	"github.com/coopvest/coopvest-backend/api/validators"
	"github.com/coopvest/coopvest-backend/internal/activity"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
)

// ListActivity returns the cooperative's billing activity feed, newest first.
func ListActivity(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}

		cid, err := uuid.Parse(middleware.CooperativeIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cooperative context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		entries, next, err := svc.List(r.Context(), cid, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := map[string]any{"entries": entries}
		if next != "" {
			resp["cursor"] = next
		}
		responses.WriteSuccess(w, resp)
	}
}
