package channel

import (
	"context"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
)

// NoopSender stands in for transports that are configured but not yet
// integrated (SMS, mobile push). Deliveries are logged and reported as
// successful so enabling the real integration later needs no data
// changes.
type NoopSender struct {
	name   domain.Channel
	logger *zap.Logger
}

func NewNoopSender(name domain.Channel, logger *zap.Logger) *NoopSender {
	return &NoopSender{name: name, logger: logger}
}

func (s *NoopSender) Name() domain.Channel { return s.name }

func (s *NoopSender) Send(_ context.Context, _ *domain.User, n *domain.Notification) error {
	s.logger.Debug("transport not integrated, delivery skipped",
		zap.String("channel", string(s.name)),
		zap.String("notification_id", n.ID),
		zap.String("user_id", n.UserID))
	return nil
}

var _ Sender = (*NoopSender)(nil)
