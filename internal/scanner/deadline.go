package scanner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/dedup"
	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
)

// deadlineThresholds are checked on every scan, furthest out first.
// DaysLeft feeds the rendered message; the 2-hour threshold reports a
// fraction of a day.
var deadlineThresholds = []struct {
	Before    time.Duration
	EventType string
	DaysLeft  float64
}{
	{7 * 24 * time.Hour, "prazo.expiring_7d", 7},
	{3 * 24 * time.Hour, "prazo.expiring_3d", 3},
	{24 * time.Hour, "prazo.expiring_1d", 1},
	{2 * time.Hour, "prazo.expiring_2h", 0.083},
}

const (
	deadlineSuppressTTL = 24 * time.Hour
	// Expired deadlines re-alert sooner: an untreated overdue deadline
	// is worth nagging about.
	expiredSuppressTTL = 6 * time.Hour
	expiredLookback    = 24 * time.Hour
)

// DeadlineScanner alerts the responsible attorney about procedural
// deadlines approaching their due date, and again once they pass it.
type DeadlineScanner struct {
	src      repository.DeadlineSource
	pub      Publisher
	cache    *dedup.Cache
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewDeadlineScanner(
	src repository.DeadlineSource,
	pub Publisher,
	cache *dedup.Cache,
	interval time.Duration,
	logger *zap.Logger,
) *DeadlineScanner {
	return &DeadlineScanner{
		src: src, pub: pub, cache: cache,
		interval: interval, logger: logger,
		now: time.Now,
	}
}

// Run blocks, scanning every interval until ctx is cancelled.
func (s *DeadlineScanner) Run(ctx context.Context) {
	runEvery(ctx, s.interval, "deadline", s.logger, func(ctx context.Context) {
		s.Scan(ctx)
	})
}

// Scan walks every threshold band plus the recently-expired window.
// Callable directly for external triggers and tests.
func (s *DeadlineScanner) Scan(ctx context.Context) {
	now := s.now()
	for _, th := range deadlineThresholds {
		s.scanThreshold(ctx, now, th.Before, th.EventType, th.DaysLeft)
	}
	s.scanExpired(ctx, now)
}

func (s *DeadlineScanner) scanThreshold(
	ctx context.Context,
	now time.Time,
	before time.Duration,
	eventType string,
	daysLeft float64,
) {
	target := now.Add(before)
	deadlines, err := s.src.FindDeadlinesDueBetween(ctx, target.Add(-tolerance), target.Add(tolerance))
	if err != nil {
		s.logger.Error("deadline window query failed",
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}
	s.logger.Debug("deadline candidates",
		zap.String("event_type", eventType),
		zap.Int("count", len(deadlines)))

	for _, d := range deadlines {
		if d.ResponsavelID == "" {
			s.logger.Warn("deadline without responsible attorney, skipping",
				zap.String("prazo_id", d.ID))
			continue
		}
		semantic := fmt.Sprintf("prazo:%s:%s", d.ID, eventType)
		if !s.cache.Acquire(ctx, dedupKey(d.TenantID, d.ResponsavelID, semantic), deadlineSuppressTTL) {
			continue
		}
		payload := domain.Payload{
			"prazoId":        d.ID,
			"processoId":     d.ProcessoID,
			"processoNumero": d.ProcessoNumero,
			"titulo":         d.Titulo,
			"dataVencimento": d.DueAt.Format(time.RFC3339),
			"diasRestantes":  daysLeft,
		}
		if _, _, err := s.pub.Publish(ctx, eventType, d.TenantID, d.ResponsavelID, payload, nil); err != nil {
			s.logger.Error("deadline alert publish failed",
				zap.String("prazo_id", d.ID),
				zap.String("event_type", eventType),
				zap.Error(err))
		}
	}
}

func (s *DeadlineScanner) scanExpired(ctx context.Context, now time.Time) {
	deadlines, err := s.src.FindDeadlinesExpiredSince(ctx, now.Add(-expiredLookback))
	if err != nil {
		s.logger.Error("expired deadline query failed", zap.Error(err))
		return
	}

	for _, d := range deadlines {
		if d.ResponsavelID == "" {
			continue
		}
		semantic := fmt.Sprintf("prazo:%s:prazo.expired", d.ID)
		if !s.cache.Acquire(ctx, dedupKey(d.TenantID, d.ResponsavelID, semantic), expiredSuppressTTL) {
			continue
		}
		payload := domain.Payload{
			"prazoId":        d.ID,
			"processoId":     d.ProcessoID,
			"processoNumero": d.ProcessoNumero,
			"titulo":         d.Titulo,
			"dataVencimento": d.DueAt.Format(time.RFC3339),
			"diasAtraso":     int(now.Sub(d.DueAt).Hours() / 24),
		}
		if _, _, err := s.pub.Publish(ctx, "prazo.expired", d.TenantID, d.ResponsavelID, payload, nil); err != nil {
			s.logger.Error("expired deadline publish failed",
				zap.String("prazo_id", d.ID),
				zap.Error(err))
		}
	}
}
