package billing

import (
	"context"
	"net/http"

	"github.com/coopvest/coopvest-backend/api/responses"
	"github.com/coopvest/coopvest-backend/pkg/db/models"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
)

type PlanCatalog interface {
	ListActive(ctx context.Context) ([]models.Plan, error)
}

type planResponse struct {
	ID                   string   `json:"id"`
	Code                 string   `json:"code"`
	Name                 string   `json:"name"`
	MonthlyPrice         int64    `json:"monthly_price"`
	YearlyPrice          int64    `json:"yearly_price"`
	MaxMembers           int      `json:"max_members"`
	MaxContributionPlans int      `json:"max_contribution_plans"`
	MaxLoansPerMonth     int      `json:"max_loans_per_month"`
	MaxGroupBuys         int      `json:"max_group_buys"`
	Features             []string `json:"features"`
	SortOrder            int      `json:"sort_order"`
}

func planToResponse(plan models.Plan) planResponse {
	features := make([]string, 0, len(plan.Features))
	features = append(features, plan.Features...)
	return planResponse{
		ID:                   plan.ID.String(),
		Code:                 plan.Code,
		Name:                 plan.Name,
		MonthlyPrice:         plan.MonthlyPrice,
		YearlyPrice:          plan.YearlyPrice,
		MaxMembers:           plan.MaxMembers,
		MaxContributionPlans: plan.MaxContributionPlans,
		MaxLoansPerMonth:     plan.MaxLoansPerMonth,
		MaxGroupBuys:         plan.MaxGroupBuys,
		Features:             features,
		SortOrder:            plan.SortOrder,
	}
}

// ListPlans returns the active plan catalog ordered for display.
func ListPlans(catalog PlanCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog unavailable"))
			return
		}

		plans, err := catalog.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]planResponse, 0, len(plans))
		for _, plan := range plans {
			out = append(out, planToResponse(plan))
		}
		responses.WriteSuccess(w, map[string]any{"plans": out})
	}
}
