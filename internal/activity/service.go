package activity

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
	"github.com/coopvest/coopvest-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service records billing actions for a cooperative's audit trail. Recording
// is best-effort: a failed write is logged and never fails the action.
type Service interface {
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, cooperativeID uuid.UUID, limit int, cursor string) ([]models.ActivityLog, string, error)
}

// Entry describes one auditable billing action.
type Entry struct {
	CooperativeID uuid.UUID
	UserID        *uuid.UUID
	Action        string
	Description   string
	Metadata      map[string]string
}

type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	logger *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "activity repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: params.Repo, logger: params.Logger}, nil
}

func (s *service) Record(ctx context.Context, entry Entry) {
	if entry.CooperativeID == uuid.Nil || strings.TrimSpace(entry.Action) == "" {
		return
	}

	var metadata json.RawMessage
	if len(entry.Metadata) > 0 {
		if encoded, err := json.Marshal(entry.Metadata); err == nil {
			metadata = encoded
		}
	}

	row := &models.ActivityLog{
		CooperativeID: entry.CooperativeID,
		UserID:        entry.UserID,
		Action:        entry.Action,
		Description:   entry.Description,
		Metadata:      metadata,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error(s.logger.WithFields(ctx, map[string]any{
			"cooperative_id": entry.CooperativeID.String(),
			"action":         entry.Action,
		}), "recording activity entry", err)
	}
}

func (s *service) List(ctx context.Context, cooperativeID uuid.UUID, limit int, cursor string) ([]models.ActivityLog, string, error) {
	if cooperativeID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "cooperative id required")
	}

	var parsed *pagination.Cursor
	if cursor != "" {
		c, err := pagination.ParseCursor(cursor)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		parsed = c
	}

	entries, next, err := s.repo.List(ctx, cooperativeID, limit, parsed)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing activity")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return entries, nextCursor, nil
}

// Action names recorded by the billing engine.
const (
	ActionPlanSelected    = "billing.plan_selected"
	ActionPlanChanged     = "billing.plan_changed"
	ActionCancelled       = "billing.subscription_cancelled"
	ActionPaymentOpened   = "billing.payment_initiated"
	ActionPaymentVerified = "billing.payment_verified"
)
