package cron

import (
	"context"
	"fmt"

	"github.com/coopvest/coopvest-backend/pkg/logger"
)

const periodSweepBatchSize = 200

type PeriodSweepJobParams struct {
	Logger    *logger.Logger
	Sweeper   lapsedSweeper
	BatchSize int
}

type lapsedSweeper interface {
	SweepLapsed(ctx context.Context, limit int) (int, error)
}

func NewPeriodSweepJob(params PeriodSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = periodSweepBatchSize
	}
	return &periodSweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		batch:   batch,
	}, nil
}

type periodSweepJob struct {
	logg    *logger.Logger
	sweeper lapsedSweeper
	batch   int
}

func (j *periodSweepJob) Name() string { return "subscription-period-sweep" }

// Run resolves subscriptions whose billing period has lapsed, draining in
// batches until a batch comes back short.
func (j *periodSweepJob) Run(ctx context.Context) error {
	total := 0
	for {
		resolved, err := j.sweeper.SweepLapsed(ctx, j.batch)
		if err != nil {
			return fmt.Errorf("period sweep: %w", err)
		}
		total += resolved
		if resolved < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch_size":    j.batch,
		"rows_resolved": total,
	})
	j.logg.Info(logCtx, "subscription period sweep complete")
	return nil
}
