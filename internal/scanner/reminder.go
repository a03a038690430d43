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

// reminderWindows: the day-ahead reminder scans a one-hour band so a
// daily-ish cadence still catches every entry; the hour-ahead reminder
// uses a tight band and a short suppression so late reschedules still
// fire.
var reminderWindows = []struct {
	Before      time.Duration
	Band        time.Duration
	EventType   string
	SuppressTTL time.Duration
}{
	{24 * time.Hour, time.Hour, "evento.reminder_1d", 12 * time.Hour},
	{time.Hour, 15 * time.Minute, "evento.reminder_1h", 30 * time.Minute},
}

// ReminderScanner sends agenda reminders a day and an hour before each
// appointment starts, to every invited participant.
type ReminderScanner struct {
	src      repository.AppointmentSource
	pub      Publisher
	cache    *dedup.Cache
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewReminderScanner(
	src repository.AppointmentSource,
	pub Publisher,
	cache *dedup.Cache,
	interval time.Duration,
	logger *zap.Logger,
) *ReminderScanner {
	return &ReminderScanner{
		src: src, pub: pub, cache: cache,
		interval: interval, logger: logger,
		now: time.Now,
	}
}

func (s *ReminderScanner) Run(ctx context.Context) {
	runEvery(ctx, s.interval, "reminder", s.logger, func(ctx context.Context) {
		s.Scan(ctx)
	})
}

func (s *ReminderScanner) Scan(ctx context.Context) {
	now := s.now()
	for _, w := range reminderWindows {
		from := now.Add(w.Before)
		s.scanWindow(ctx, from, from.Add(w.Band), w.EventType, w.SuppressTTL)
	}
}

func (s *ReminderScanner) scanWindow(
	ctx context.Context,
	from, to time.Time,
	eventType string,
	suppressTTL time.Duration,
) {
	appts, err := s.src.FindAppointmentsStartingBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("appointment window query failed",
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}
	s.logger.Debug("appointment candidates",
		zap.String("event_type", eventType),
		zap.Int("count", len(appts)))

	for _, a := range appts {
		payload := domain.Payload{
			"eventoId":   a.ID,
			"titulo":     a.Titulo,
			"dataInicio": a.StartsAt.Format(time.RFC3339),
		}
		if a.Local != "" {
			payload["local"] = a.Local
		}

		for _, userID := range a.ParticipantIDs {
			if userID == "" {
				continue
			}
			semantic := fmt.Sprintf("evento:%s:%s", a.ID, eventType)
			if !s.cache.Acquire(ctx, dedupKey(a.TenantID, userID, semantic), suppressTTL) {
				continue
			}
			if _, _, err := s.pub.Publish(ctx, eventType, a.TenantID, userID, payload, nil); err != nil {
				s.logger.Error("appointment reminder publish failed",
					zap.String("evento_id", a.ID),
					zap.String("event_type", eventType),
					zap.Error(err))
			}
		}
	}
}
