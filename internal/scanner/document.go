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

const (
	documentLookback    = 24 * time.Hour
	documentSuppressTTL = 24 * time.Hour
)

// DocumentScanner alerts when a pending document signature passes its
// expiry date. Recipients are the tenant admins plus the client's
// portal user when the document belongs to a client.
type DocumentScanner struct {
	src      repository.DocumentSource
	dir      repository.DirectoryRepository
	pub      Publisher
	cache    *dedup.Cache
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewDocumentScanner(
	src repository.DocumentSource,
	dir repository.DirectoryRepository,
	pub Publisher,
	cache *dedup.Cache,
	interval time.Duration,
	logger *zap.Logger,
) *DocumentScanner {
	return &DocumentScanner{
		src: src, dir: dir, pub: pub, cache: cache,
		interval: interval, logger: logger,
		now: time.Now,
	}
}

func (s *DocumentScanner) Run(ctx context.Context) {
	runEvery(ctx, s.interval, "document", s.logger, func(ctx context.Context) {
		s.Scan(ctx)
	})
}

// Scan looks at signatures that expired within the last day, so a
// missed run still catches up without replaying ancient rows.
func (s *DocumentScanner) Scan(ctx context.Context) {
	now := s.now()
	docs, err := s.src.FindDocumentsExpiringBetween(ctx, now.Add(-documentLookback), now)
	if err != nil {
		s.logger.Error("document window query failed", zap.Error(err))
		return
	}
	s.logger.Debug("document candidates", zap.Int("count", len(docs)))

	for _, d := range docs {
		payload := domain.Payload{
			"documentoId":   d.ID,
			"nome":          d.Nome,
			"dataExpiracao": d.ExpiresAt.Format(time.RFC3339),
		}
		if d.ProcessoID != "" {
			payload["processoId"] = d.ProcessoID
		}

		for _, userID := range s.recipients(ctx, d) {
			semantic := fmt.Sprintf("documento:%s:documento.expired", d.ID)
			if !s.cache.Acquire(ctx, dedupKey(d.TenantID, userID, semantic), documentSuppressTTL) {
				continue
			}
			if _, _, err := s.pub.Publish(ctx, "documento.expired", d.TenantID, userID, payload, nil); err != nil {
				s.logger.Error("document alert publish failed",
					zap.String("documento_id", d.ID),
					zap.Error(err))
			}
		}
	}
}

func (s *DocumentScanner) recipients(ctx context.Context, d *repository.DueDocument) []string {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	admins, err := s.dir.FindAdmins(ctx, d.TenantID)
	if err != nil {
		s.logger.Warn("admin lookup failed",
			zap.String("tenant_id", d.TenantID), zap.Error(err))
	}
	for _, a := range admins {
		add(a.ID)
	}

	if d.ClienteID != "" {
		client, err := s.dir.FindClientUser(ctx, d.TenantID, d.ClienteID)
		if err == nil {
			add(client.ID)
		}
	}
	return out
}
