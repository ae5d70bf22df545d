package controllers

import (
	"context"
	"net/http"

	"github.com/coopvest/coopvest-backend/api/responses"
	"github.com/coopvest/coopvest-backend/pkg/config"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
)

// Pinger is the health check surface shared by the API's backing services.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Coopvest-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the API's hard dependencies before reporting ready.
// Dependencies are keyed by name so the failing one shows up in the error.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Coopvest-Env", cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
