package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/tilldesk/register-backend/pkg/logger"
)

const defaultRetention = 30 * 24 * time.Hour

type outboxPruner interface {
	DeletePublishedBefore(cutoff time.Time) (int64, error)
}

type dlqPruner interface {
	DeleteFailedBefore(cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configures the journal cleanup job. DLQ is
// optional; without it only published outbox rows are pruned.
type OutboxRetentionJobParams struct {
	Logger    *logger.Logger
	Outbox    outboxPruner
	DLQ       dlqPruner
	Retention time.Duration
}

// NewOutboxRetentionJob builds the job that prunes journal rows already
// shipped to HQ, plus dead-letter rows past the same age. Unpublished rows
// are never touched regardless of age.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		outbox:    params.Outbox,
		dlq:       params.DLQ,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	outbox    outboxPruner
	dlq       dlqPruner
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes both tables even when one fails; errors aggregate.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	var errs error
	published, err := j.outbox.DeletePublishedBefore(cutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("prune outbox: %w", err))
	}

	var dead int64
	if j.dlq != nil {
		dead, err = j.dlq.DeleteFailedBefore(cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("prune dlq: %w", err))
		}
	}
	if errs != nil {
		return errs
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"published_del": published,
		"dlq_del":       dead,
	})
	j.logg.Info(logCtx, "journal retention cleanup complete")
	return nil
}
