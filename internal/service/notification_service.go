// Package service holds the dispatch core. Publishing turns producer
// input into a durable job and hands it to the queue; processing turns a
// dequeued event into a stored notification and fans it out across the
// delivery channels. HTTP handlers and workers depend on this service,
// not on each other.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/channel"
	"github.com/lexops/notify/internal/dedup"
	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/factory"
	"github.com/lexops/notify/internal/policy"
	"github.com/lexops/notify/internal/prefs"
	"github.com/lexops/notify/internal/queue"
	"github.com/lexops/notify/internal/ratelimiter"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/template"
)

// PublishOptions carries the optional dispatch controls of a publish.
type PublishOptions struct {
	Urgency  domain.Urgency
	Channels []domain.Channel
	// Delay postpones the first run; Repeat re-runs the job on a cron
	// schedule. Both are handled by the scheduler poller.
	Delay  time.Duration
	Repeat string
}

// Deps bundles the service's collaborators. Everything is an interface
// or a small struct, so tests assemble the service from mocks.
type Deps struct {
	Factory   *factory.Factory
	Jobs      repository.JobRepository
	Notifs    repository.NotificationRepository
	Directory repository.DirectoryRepository
	Prefs     *prefs.Resolver
	Templates *template.Resolver
	Queue     *queue.PriorityQueue
	Dedup     *dedup.Cache
	Senders   []channel.Sender
	Limiters  *ratelimiter.ChannelLimiters
	Logger    *zap.Logger

	// PublishWindow is the payload-hash suppression TTL. Zero disables
	// publish-time dedup.
	PublishWindow time.Duration

	// Metric callbacks; nil hooks are ignored.
	OnPublished  func(eventType string)
	OnSuppressed func(eventType string)
	OnDelivered  func(domain.Channel)
	OnFailed     func(domain.Channel)
}

type NotificationService struct {
	deps     Deps
	senders  map[domain.Channel]channel.Sender
	cronSpec cron.Parser
}

func New(deps Deps) *NotificationService {
	senders := make(map[domain.Channel]channel.Sender, len(deps.Senders))
	for _, s := range deps.Senders {
		senders[s.Name()] = s
	}
	return &NotificationService{
		deps:    deps,
		senders: senders,
		cronSpec: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Publish validates the event, persists a dispatch job, and enqueues it.
//
// Duplicate suppression: an identical publish (same tenant, user, type,
// payload) inside the publish window returns the suppressed flag instead
// of a second job. If the in-memory queue tier is full the event is
// processed synchronously on the caller's goroutine rather than dropped.
func (s *NotificationService) Publish(
	ctx context.Context,
	eventType, tenantID, userID string,
	payload domain.Payload,
	opts *PublishOptions,
) (*domain.Job, bool, error) {
	event, err := s.deps.Factory.CreateEvent(eventType, tenantID, userID, payload, eventOptions(opts))
	if err != nil {
		return nil, false, err
	}

	if s.deps.PublishWindow > 0 && s.deps.Dedup != nil {
		key := publishKey(event)
		if !s.deps.Dedup.Acquire(ctx, key, s.deps.PublishWindow) {
			s.deps.Logger.Info("duplicate publish suppressed",
				zap.String("event_type", event.Type),
				zap.String("tenant_id", event.TenantID),
				zap.String("user_id", event.UserID))
			s.hook(s.deps.OnSuppressed, event.Type)
			return nil, true, nil
		}
	}

	job, err := s.buildJob(event, opts)
	if err != nil {
		return nil, false, err
	}
	if err := s.deps.Jobs.Create(ctx, job); err != nil {
		return nil, false, fmt.Errorf("persist job: %w", err)
	}
	s.hook(s.deps.OnPublished, event.Type)

	if job.Status == domain.JobScheduled {
		return job, false, nil // scheduler poller picks it up at run time
	}

	s.enqueue(ctx, job)
	return job, false, nil
}

// PublishToUsers applies Publish once per recipient. Per-user failures
// do not abort the rest; the first error is reported after the loop.
func (s *NotificationService) PublishToUsers(
	ctx context.Context,
	eventType, tenantID string,
	userIDs []string,
	payload domain.Payload,
	opts *PublishOptions,
) ([]*domain.Job, error) {
	var (
		jobs     []*domain.Job
		firstErr error
	)
	for _, userID := range userIDs {
		job, suppressed, err := s.Publish(ctx, eventType, tenantID, userID, payload, opts)
		if err != nil {
			s.deps.Logger.Error("publish to user failed",
				zap.String("event_type", eventType),
				zap.String("user_id", userID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !suppressed {
			jobs = append(jobs, job)
		}
	}
	return jobs, firstErr
}

// PublishToRole fans a publish out to every active user holding the role.
func (s *NotificationService) PublishToRole(
	ctx context.Context,
	eventType, tenantID, role string,
	payload domain.Payload,
	opts *PublishOptions,
) ([]*domain.Job, error) {
	users, err := s.deps.Directory.FindByRole(ctx, tenantID, role)
	if err != nil {
		return nil, fmt.Errorf("resolve role recipients: %w", err)
	}
	userIDs := make([]string, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}
	return s.PublishToUsers(ctx, eventType, tenantID, userIDs, payload, opts)
}

// ProcessSync runs the full delivery pipeline for one event on the
// calling goroutine: permission, preference, template, persistence,
// channel fan-out. Channel failures are isolated and logged; an error
// return means nothing was persisted and the job is safe to retry.
func (s *NotificationService) ProcessSync(ctx context.Context, event domain.Event) error {
	user, err := s.deps.Directory.FindUser(ctx, event.TenantID, event.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		s.deps.Logger.Info("recipient not in tenant directory, skipping",
			zap.String("tenant_id", event.TenantID),
			zap.String("user_id", event.UserID),
			zap.String("event_type", event.Type))
		return nil
	}
	if err != nil {
		return fmt.Errorf("permission lookup: %w", err)
	}
	if !user.Active {
		s.deps.Logger.Info("recipient inactive, skipping",
			zap.String("user_id", event.UserID),
			zap.String("event_type", event.Type))
		return nil
	}

	pref, err := s.deps.Prefs.Resolve(ctx, event.TenantID, event.UserID, event.Type)
	if err != nil {
		return fmt.Errorf("resolve preference: %w", err)
	}
	if !pref.Enabled {
		if policy.CanDisable(event.Type) {
			s.deps.Logger.Info("notification disabled by preference, skipping",
				zap.String("user_id", event.UserID),
				zap.String("event_type", event.Type))
			return nil
		}
		// Critical event types cannot be opted out of.
		pref.Enabled = true
	}

	title, message, err := s.deps.Templates.Render(ctx, event)
	if err != nil {
		return err
	}

	channels := selectChannels(event, pref)

	now := time.Now().UTC()
	n := &domain.Notification{
		ID:        uuid.New().String(),
		TenantID:  event.TenantID,
		UserID:    event.UserID,
		Type:      event.Type,
		Title:     title,
		Message:   message,
		Payload:   event.Payload,
		Urgency:   event.Urgency,
		Channels:  channels,
		CreatedAt: now,
		ExpiresAt: now.Add(policy.Expiry(event.Urgency)),
	}
	if err := s.deps.Notifs.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	s.fanOut(ctx, user, n)
	return nil
}

// fanOut attempts delivery on every selected channel. A failed channel
// never blocks the others; each outcome is logged and counted.
func (s *NotificationService) fanOut(ctx context.Context, user *domain.User, n *domain.Notification) {
	for _, ch := range n.Channels {
		sender, ok := s.senders[ch]
		if !ok {
			s.deps.Logger.Warn("no sender configured for channel",
				zap.String("channel", string(ch)),
				zap.String("notification_id", n.ID))
			continue
		}

		if s.deps.Limiters != nil {
			if err := s.deps.Limiters.Wait(ctx, ch); err != nil {
				s.deps.Logger.Warn("rate limit wait aborted",
					zap.String("channel", string(ch)), zap.Error(err))
				s.hookCh(s.deps.OnFailed, ch)
				continue
			}
		}

		if err := sender.Send(ctx, user, n); err != nil {
			s.deps.Logger.Error("channel delivery failed",
				zap.String("channel", string(ch)),
				zap.String("notification_id", n.ID),
				zap.Error(err))
			s.hookCh(s.deps.OnFailed, ch)
			continue
		}
		s.hookCh(s.deps.OnDelivered, ch)
	}
}

// List returns a page of stored notifications for one recipient.
func (s *NotificationService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Notification, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.deps.Notifs.List(ctx, filter)
}

// MarkRead stamps a notification as read. Re-reading is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, tenantID, id string) error {
	return s.deps.Notifs.MarkRead(ctx, tenantID, id, time.Now().UTC())
}

// Counts exposes the durable queue snapshot for the metrics endpoint.
func (s *NotificationService) Counts(ctx context.Context) (domain.JobCounts, error) {
	return s.deps.Jobs.Counts(ctx)
}

// ---- private helpers ----

func (s *NotificationService) buildJob(event domain.Event, opts *PublishOptions) (*domain.Job, error) {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:          uuid.New().String(),
		Name:        event.Type,
		Event:       event,
		Priority:    policy.QueuePriority(event.Urgency),
		Status:      domain.JobPending,
		MaxAttempts: 3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if opts != nil && opts.Repeat != "" {
		if _, err := s.cronSpec.Parse(opts.Repeat); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSchedule, opts.Repeat)
		}
		job.Repeat = opts.Repeat
	}
	if opts != nil && opts.Delay > 0 {
		runAt := now.Add(opts.Delay)
		job.RunAt = &runAt
		job.Status = domain.JobScheduled
	} else if job.Repeat != "" {
		// A repeating job with no delay still starts via the scheduler
		// so every cycle follows the same path.
		schedule, _ := s.cronSpec.Parse(job.Repeat)
		runAt := schedule.Next(now)
		job.RunAt = &runAt
		job.Status = domain.JobScheduled
	}
	return job, nil
}

// enqueue hands the job to the in-memory queue. When the tier is
// saturated the event is delivered synchronously instead of waiting:
// slower for this caller, but nothing is dropped.
func (s *NotificationService) enqueue(ctx context.Context, job *domain.Job) {
	err := s.deps.Queue.Enqueue(queue.Item{JobID: job.ID, Priority: job.Priority})
	if err == nil {
		if err := s.deps.Jobs.MarkQueued(ctx, job.ID); err != nil {
			s.deps.Logger.Error("failed to mark job queued",
				zap.String("job_id", job.ID), zap.Error(err))
			return
		}
		job.Status = domain.JobQueued
		return
	}

	if errors.Is(err, domain.ErrQueuePaused) {
		s.deps.Logger.Warn("queue paused: job stays pending",
			zap.String("job_id", job.ID))
		return
	}

	s.deps.Logger.Warn("queue full: processing synchronously",
		zap.String("job_id", job.ID), zap.Error(err))
	if err := s.deps.Jobs.MarkActive(ctx, job.ID); err != nil {
		s.deps.Logger.Error("failed to mark job active",
			zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := s.ProcessSync(ctx, job.Event); err != nil {
		s.deps.Logger.Error("synchronous fallback failed",
			zap.String("job_id", job.ID), zap.Error(err))
		if err := s.deps.Jobs.MarkFailed(ctx, job.ID, err.Error()); err != nil {
			s.deps.Logger.Error("failed to mark job failed",
				zap.String("job_id", job.ID), zap.Error(err))
		}
		return
	}
	if err := s.deps.Jobs.MarkCompleted(ctx, job.ID); err != nil {
		s.deps.Logger.Error("failed to mark job completed",
			zap.String("job_id", job.ID), zap.Error(err))
	}
	job.Status = domain.JobCompleted
}

func (s *NotificationService) hook(fn func(string), eventType string) {
	if fn != nil {
		fn(eventType)
	}
}

func (s *NotificationService) hookCh(fn func(domain.Channel), ch domain.Channel) {
	if fn != nil {
		fn(ch)
	}
}

// selectChannels applies the channel precedence rules:
// critical events always go REALTIME + EMAIL, an explicit event override
// is honoured but filtered to the user's enabled channels, and otherwise
// the resolved preference decides.
func selectChannels(event domain.Event, pref prefs.Effective) []domain.Channel {
	if event.Urgency == domain.UrgencyCritical {
		return []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}
	}

	if len(event.Channels) > 0 {
		enabled := make(map[domain.Channel]bool, len(pref.Channels))
		for _, ch := range pref.Channels {
			enabled[ch] = true
		}
		var filtered []domain.Channel
		for _, ch := range event.Channels {
			if enabled[ch] {
				filtered = append(filtered, ch)
			}
		}
		if len(filtered) > 0 {
			return filtered
		}
	}
	return pref.Channels
}

func eventOptions(opts *PublishOptions) *domain.EventOptions {
	if opts == nil {
		return nil
	}
	return &domain.EventOptions{Urgency: opts.Urgency, Channels: opts.Channels}
}

// publishKey hashes the identity of a publish for duplicate suppression.
// Map iteration order does not matter: encoding/json sorts object keys.
func publishKey(event domain.Event) string {
	raw, _ := json.Marshal(event.Payload)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("publish:%s:%s:%s:%s",
		event.TenantID, event.UserID, event.Type, hex.EncodeToString(sum[:]))
}
