package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/dedup"
	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/service"
)

type publishCall struct {
	EventType string
	TenantID  string
	UserID    string
	Payload   domain.Payload
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall

	// failFor makes Publish return an error for one event type, to
	// exercise per-candidate isolation.
	failFor string
}

func (p *fakePublisher) Publish(
	_ context.Context,
	eventType, tenantID, userID string,
	payload domain.Payload,
	_ *service.PublishOptions,
) (*domain.Job, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if eventType == p.failFor {
		return nil, false, errors.New("publish refused")
	}
	p.calls = append(p.calls, publishCall{eventType, tenantID, userID, payload})
	return &domain.Job{ID: "job"}, false, nil
}

func (p *fakePublisher) published() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishCall, len(p.calls))
	copy(out, p.calls)
	return out
}

type fakeDedupStore struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (f *fakeDedupStore) SetNX(ctx context.Context, key string, _ any, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		cmd.SetVal(false)
		return cmd
	}
	f.seen[key] = true
	cmd.SetVal(true)
	return cmd
}

func newTestCache() *dedup.Cache {
	return dedup.NewCache(&fakeDedupStore{}, zap.NewNop())
}

type fakeDeadlineSource struct {
	due     []*repository.DueDeadline
	expired []*repository.DueDeadline
}

func (f *fakeDeadlineSource) FindDeadlinesDueBetween(_ context.Context, from, to time.Time) ([]*repository.DueDeadline, error) {
	var out []*repository.DueDeadline
	for _, d := range f.due {
		if !d.DueAt.Before(from) && !d.DueAt.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDeadlineSource) FindDeadlinesExpiredSince(_ context.Context, cutoff time.Time) ([]*repository.DueDeadline, error) {
	var out []*repository.DueDeadline
	for _, d := range f.expired {
		if d.DueAt.After(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestDeadlineScanner_PublishesThresholdAlert(t *testing.T) {
	now := time.Now()
	src := &fakeDeadlineSource{due: []*repository.DueDeadline{{
		ID: "p1", TenantID: "t1", Titulo: "Contestação",
		ProcessoID: "proc1", ProcessoNumero: "0001234-56",
		ResponsavelID: "adv1",
		DueAt:         now.Add(3 * 24 * time.Hour),
	}}}
	pub := &fakePublisher{}
	s := NewDeadlineScanner(src, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())

	calls := pub.published()
	if len(calls) != 1 {
		t.Fatalf("published %d events, want 1", len(calls))
	}
	c := calls[0]
	if c.EventType != "prazo.expiring_3d" || c.UserID != "adv1" {
		t.Errorf("published %s to %s, want prazo.expiring_3d to adv1", c.EventType, c.UserID)
	}
	if c.Payload["processoNumero"] != "0001234-56" {
		t.Errorf("processoNumero = %v", c.Payload["processoNumero"])
	}
	if c.Payload["diasRestantes"] != 3.0 {
		t.Errorf("diasRestantes = %v, want 3", c.Payload["diasRestantes"])
	}
}

func TestDeadlineScanner_RepeatScanSuppressed(t *testing.T) {
	now := time.Now()
	src := &fakeDeadlineSource{due: []*repository.DueDeadline{{
		ID: "p1", TenantID: "t1", ResponsavelID: "adv1",
		DueAt: now.Add(24 * time.Hour),
	}}}
	pub := &fakePublisher{}
	s := NewDeadlineScanner(src, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())
	s.Scan(context.Background())

	if got := len(pub.published()); got != 1 {
		t.Errorf("published %d events across two scans, want 1", got)
	}
}

func TestDeadlineScanner_ExpiredDeadline(t *testing.T) {
	now := time.Now()
	src := &fakeDeadlineSource{expired: []*repository.DueDeadline{{
		ID: "p2", TenantID: "t1", ResponsavelID: "adv1",
		ProcessoID: "proc1", ProcessoNumero: "0001234-56",
		DueAt: now.Add(-26 * time.Hour),
	}, {
		ID: "p3", TenantID: "t1", ResponsavelID: "adv1",
		ProcessoID: "proc1", ProcessoNumero: "0001234-56",
		DueAt: now.Add(-3 * time.Hour),
	}}}
	pub := &fakePublisher{}
	s := NewDeadlineScanner(src, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())

	calls := pub.published()
	if len(calls) != 1 {
		t.Fatalf("published %d events, want only the deadline inside the lookback", len(calls))
	}
	if calls[0].EventType != "prazo.expired" || calls[0].Payload["prazoId"] != "p3" {
		t.Errorf("published %s for %v", calls[0].EventType, calls[0].Payload["prazoId"])
	}
	if calls[0].Payload["diasAtraso"] != 0 {
		t.Errorf("diasAtraso = %v, want 0", calls[0].Payload["diasAtraso"])
	}
}

func TestDeadlineScanner_NoResponsibleSkipped(t *testing.T) {
	now := time.Now()
	src := &fakeDeadlineSource{due: []*repository.DueDeadline{{
		ID: "p1", TenantID: "t1", DueAt: now.Add(24 * time.Hour),
	}}}
	pub := &fakePublisher{}
	s := NewDeadlineScanner(src, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())
	if got := len(pub.published()); got != 0 {
		t.Errorf("published %d events for an unowned deadline, want 0", got)
	}
}

func TestDeadlineScanner_PublishFailureDoesNotAbortScan(t *testing.T) {
	now := time.Now()
	src := &fakeDeadlineSource{
		due: []*repository.DueDeadline{{
			ID: "p1", TenantID: "t1", ResponsavelID: "adv1",
			DueAt: now.Add(24 * time.Hour),
		}},
		expired: []*repository.DueDeadline{{
			ID: "p2", TenantID: "t1", ResponsavelID: "adv1",
			DueAt: now.Add(-time.Hour),
		}},
	}
	pub := &fakePublisher{failFor: "prazo.expiring_1d"}
	s := NewDeadlineScanner(src, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())

	calls := pub.published()
	if len(calls) != 1 || calls[0].EventType != "prazo.expired" {
		t.Fatalf("calls = %+v, want the expired alert despite the threshold failure", calls)
	}
}

type fakeContractSource struct {
	contracts []*repository.DueContract
}

func (f *fakeContractSource) FindContractsExpiringBetween(_ context.Context, from, to time.Time) ([]*repository.DueContract, error) {
	var out []*repository.DueContract
	for _, c := range f.contracts {
		if !c.EndsAt.Before(from) && !c.EndsAt.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestContractScanner_ExpiringFansOutToAllParties(t *testing.T) {
	now := time.Now()
	dir := repository.NewMockDirectoryRepository()
	dir.AddUser("t1", domain.User{ID: "admin1", Role: "ADMIN", Active: true})
	dir.AddUser("t1", domain.User{ID: "cli-user", Role: "CLIENTE", Active: true})
	dir.LinkClient("t1", "c1", "cli-user")

	src := &fakeContractSource{contracts: []*repository.DueContract{{
		ID: "ct1", TenantID: "t1", Numero: "CT-2026-001",
		ClienteID: "c1", ClienteNome: "Silva & Filhos",
		ResponsavelID: "adv1",
		EndsAt:        now.Add(5 * 24 * time.Hour),
	}}}
	pub := &fakePublisher{}
	s := NewContractScanner(src, dir, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())

	calls := pub.published()
	if len(calls) != 3 {
		t.Fatalf("published %d events, want admin, attorney and client", len(calls))
	}
	recipients := map[string]bool{}
	for _, c := range calls {
		if c.EventType != "contrato.expiring" {
			t.Errorf("event type = %s, want contrato.expiring", c.EventType)
		}
		if c.Payload["diasRestantes"] != 5 {
			t.Errorf("diasRestantes = %v, want 5", c.Payload["diasRestantes"])
		}
		recipients[c.UserID] = true
	}
	for _, want := range []string{"admin1", "adv1", "cli-user"} {
		if !recipients[want] {
			t.Errorf("recipient %s missing", want)
		}
	}
}

func TestContractScanner_ExpiredContract(t *testing.T) {
	now := time.Now()
	dir := repository.NewMockDirectoryRepository()
	src := &fakeContractSource{contracts: []*repository.DueContract{{
		ID: "ct1", TenantID: "t1",
		ClienteID: "c1", ClienteNome: "Silva & Filhos",
		ResponsavelID: "adv1",
		EndsAt:        now.Add(-10 * time.Hour),
	}}}
	pub := &fakePublisher{}
	s := NewContractScanner(src, dir, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())

	calls := pub.published()
	if len(calls) != 1 {
		t.Fatalf("published %d events, want 1", len(calls))
	}
	c := calls[0]
	if c.EventType != "contrato.expired" || c.UserID != "adv1" {
		t.Errorf("published %s to %s, want contrato.expired to adv1", c.EventType, c.UserID)
	}
	if _, hasRemaining := c.Payload["diasRestantes"]; hasRemaining {
		t.Error("expired contract payload must not carry diasRestantes")
	}
}

type fakeDocumentSource struct {
	docs []*repository.DueDocument
}

func (f *fakeDocumentSource) FindDocumentsExpiringBetween(_ context.Context, from, to time.Time) ([]*repository.DueDocument, error) {
	var out []*repository.DueDocument
	for _, d := range f.docs {
		if !d.ExpiresAt.Before(from) && !d.ExpiresAt.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestDocumentScanner_ExpiredSignature(t *testing.T) {
	now := time.Now()
	dir := repository.NewMockDirectoryRepository()
	dir.AddUser("t1", domain.User{ID: "admin1", Role: "ADMIN", Active: true})
	dir.AddUser("t1", domain.User{ID: "cli-user", Role: "CLIENTE", Active: true})
	dir.LinkClient("t1", "c1", "cli-user")

	src := &fakeDocumentSource{docs: []*repository.DueDocument{{
		ID: "d1", TenantID: "t1", Nome: "Procuração",
		ClienteID: "c1", ExpiresAt: now.Add(-2 * time.Hour),
	}}}
	pub := &fakePublisher{}
	s := NewDocumentScanner(src, dir, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())

	calls := pub.published()
	if len(calls) != 2 {
		t.Fatalf("published %d events, want admin and client", len(calls))
	}
	for _, c := range calls {
		if c.EventType != "documento.expired" {
			t.Errorf("event type = %s, want documento.expired", c.EventType)
		}
		if c.Payload["nome"] != "Procuração" {
			t.Errorf("nome = %v", c.Payload["nome"])
		}
	}
}

type fakeAppointmentSource struct {
	appts []*repository.DueAppointment
}

func (f *fakeAppointmentSource) FindAppointmentsStartingBetween(_ context.Context, from, to time.Time) ([]*repository.DueAppointment, error) {
	var out []*repository.DueAppointment
	for _, a := range f.appts {
		if !a.StartsAt.Before(from) && !a.StartsAt.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestReminderScanner_DayAheadWindow(t *testing.T) {
	now := time.Now()
	src := &fakeAppointmentSource{appts: []*repository.DueAppointment{{
		ID: "ev1", TenantID: "t1", Titulo: "Audiência",
		Local:          "2ª Vara Cível",
		StartsAt:       now.Add(24*time.Hour + 20*time.Minute),
		ParticipantIDs: []string{"adv1", "cli-user"},
	}}}
	pub := &fakePublisher{}
	s := NewReminderScanner(src, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())

	calls := pub.published()
	if len(calls) != 2 {
		t.Fatalf("published %d events, want one per participant", len(calls))
	}
	for _, c := range calls {
		if c.EventType != "evento.reminder_1d" {
			t.Errorf("event type = %s, want evento.reminder_1d", c.EventType)
		}
		if c.Payload["local"] != "2ª Vara Cível" {
			t.Errorf("local = %v", c.Payload["local"])
		}
	}
}

func TestReminderScanner_HourAheadWindow(t *testing.T) {
	now := time.Now()
	src := &fakeAppointmentSource{appts: []*repository.DueAppointment{{
		ID: "ev1", TenantID: "t1", Titulo: "Reunião",
		StartsAt:       now.Add(time.Hour + 5*time.Minute),
		ParticipantIDs: []string{"adv1"},
	}}}
	pub := &fakePublisher{}
	s := NewReminderScanner(src, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())

	calls := pub.published()
	if len(calls) != 1 || calls[0].EventType != "evento.reminder_1h" {
		t.Fatalf("calls = %+v, want a single evento.reminder_1h", calls)
	}
}

func TestReminderScanner_RepeatScanSuppressedPerParticipant(t *testing.T) {
	now := time.Now()
	src := &fakeAppointmentSource{appts: []*repository.DueAppointment{{
		ID: "ev1", TenantID: "t1", Titulo: "Reunião",
		StartsAt:       now.Add(24*time.Hour + 10*time.Minute),
		ParticipantIDs: []string{"adv1", "adv2"},
	}}}
	pub := &fakePublisher{}
	s := NewReminderScanner(src, pub, newTestCache(), time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Scan(context.Background())
	s.Scan(context.Background())

	if got := len(pub.published()); got != 2 {
		t.Errorf("published %d events across two scans, want one per participant", got)
	}
}
