// Package scanner holds the periodic services that derive notification
// events from time-based conditions in the practice-management tables:
// deadlines approaching or past due, contracts ending, document
// signatures lapsing, agenda entries about to start.
//
// Every scanner follows the same shape: query its source inside a
// tolerance window, suppress repeats through the dedup cache, resolve
// recipients, publish once per recipient. One bad candidate never
// aborts the rest of the scan.
package scanner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/service"
)

// Publisher is the entry point scanners feed. *service.NotificationService
// satisfies it.
type Publisher interface {
	Publish(
		ctx context.Context,
		eventType, tenantID, userID string,
		payload domain.Payload,
		opts *service.PublishOptions,
	) (*domain.Job, bool, error)
}

// tolerance absorbs scheduler jitter around exact thresholds so adjacent
// runs neither miss nor double-fire a candidate.
const tolerance = 30 * time.Minute

// dedupKey scopes a semantic key ("prazo:{id}:{eventType}") to one
// tenant and recipient.
func dedupKey(tenantID, userID, semantic string) string {
	return fmt.Sprintf("scan:%s:%s:%s", tenantID, userID, semantic)
}

// runEvery drives a scanner on a ticker until ctx is cancelled. The
// first scan happens after one full interval, matching the poller
// workers.
func runEvery(ctx context.Context, interval time.Duration, name string, logger *zap.Logger, scan func(context.Context)) {
	logger.Info("scanner started",
		zap.String("scanner", name),
		zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scanner stopping", zap.String("scanner", name))
			return
		case <-ticker.C:
			scan(ctx)
		}
	}
}
