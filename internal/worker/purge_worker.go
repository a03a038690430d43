package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/repository"
)

// PurgeWorker periodically deletes notifications whose urgency-derived
// expiry has passed. Read surfaces never filter on expiry, so without
// this sweep old rows accumulate forever.
type PurgeWorker struct {
	notifs   repository.NotificationRepository
	interval time.Duration
	logger   *zap.Logger
}

func NewPurgeWorker(
	notifs repository.NotificationRepository,
	interval time.Duration,
	logger *zap.Logger,
) *PurgeWorker {
	return &PurgeWorker{notifs: notifs, interval: interval, logger: logger}
}

// Run ticks every interval and purges expired rows.
// Stops cleanly when ctx is cancelled.
func (pw *PurgeWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	pw.logger.Info("purge worker started", zap.Duration("interval", pw.interval))

	for {
		select {
		case <-ctx.Done():
			pw.logger.Info("purge worker stopping")
			return
		case <-ticker.C:
			pw.poll(ctx)
		}
	}
}

func (pw *PurgeWorker) poll(ctx context.Context) {
	removed, err := pw.notifs.PurgeExpired(ctx, time.Now())
	if err != nil {
		pw.logger.Error("purge poll error", zap.Error(err))
		return
	}
	if removed > 0 {
		pw.logger.Info("purged expired notifications", zap.Int64("count", removed))
	}
}
