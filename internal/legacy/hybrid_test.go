package legacy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/service"
)

type publishCall struct {
	EventType string
	TenantID  string
	UserID    string
	Payload   domain.Payload
	Opts      *service.PublishOptions
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *fakePublisher) Publish(
	_ context.Context,
	eventType, tenantID, userID string,
	payload domain.Payload,
	opts *service.PublishOptions,
) (*domain.Job, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, false, p.err
	}
	p.calls = append(p.calls, publishCall{eventType, tenantID, userID, payload, opts})
	return &domain.Job{ID: "job"}, false, nil
}

func (p *fakePublisher) published() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishCall, len(p.calls))
	copy(out, p.calls)
	return out
}

func TestHybridPublisher_DualWrite(t *testing.T) {
	next := &fakePublisher{}
	store := repository.NewMockLegacyRepository()
	h := NewHybridPublisher(next, store, zap.NewNop())

	payload := domain.Payload{
		"prazoId": "p1", "processoId": "proc1",
		"processoNumero": "0001234-56",
		"titulo":         "Contestação", "dataVencimento": "2026-09-05T12:00:00Z",
		"diasRestantes": 7,
	}
	_, _, err := h.Publish(context.Background(), "prazo.expiring_7d", "t1", "u1", payload, nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := len(next.published()); got != 1 {
		t.Fatalf("new-system publishes = %d, want 1", got)
	}
	rows := store.All()
	if len(rows) != 1 {
		t.Fatalf("legacy rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Tipo != domain.LegacyTipoPrazo {
		t.Errorf("tipo = %s, want PRAZO", row.Tipo)
	}
	if row.Prioridade != domain.LegacyPrioridadeCritica {
		t.Errorf("prioridade = %s, want CRITICA", row.Prioridade)
	}
	if row.Titulo != "Prazo Próximo do Vencimento" {
		t.Errorf("titulo = %q", row.Titulo)
	}
	recs, _ := store.FindRecipients(context.Background(), row.ID)
	if len(recs) != 1 || recs[0].UsuarioID != "u1" || recs[0].Status != domain.LegacyStatusNaoLida {
		t.Errorf("recipients = %+v", recs)
	}
}

func TestHybridPublisher_LegacyFailureSwallowed(t *testing.T) {
	next := &fakePublisher{}
	store := repository.NewMockLegacyRepository()
	store.CreateErr = errors.New("old schema offline")
	h := NewHybridPublisher(next, store, zap.NewNop())

	_, _, err := h.Publish(context.Background(), "cliente.created", "t1", "u1",
		domain.Payload{"clienteId": "c1", "nome": "Ana"}, nil)
	if err != nil {
		t.Fatalf("legacy failure must not surface, got %v", err)
	}
	if got := len(next.published()); got != 1 {
		t.Errorf("new-system publishes = %d, want 1", got)
	}
}

func TestHybridPublisher_NewSystemFailureSurfaces(t *testing.T) {
	next := &fakePublisher{err: errors.New("queue down")}
	store := repository.NewMockLegacyRepository()
	h := NewHybridPublisher(next, store, zap.NewNop())

	_, _, err := h.Publish(context.Background(), "cliente.created", "t1", "u1",
		domain.Payload{"clienteId": "c1", "nome": "Ana"}, nil)
	if err == nil {
		t.Fatal("new-system failure must surface")
	}
	if got := len(store.All()); got != 0 {
		t.Errorf("legacy rows = %d, want none when the authoritative write failed", got)
	}
}

func TestHybridPublisher_LegacyOnlyMode(t *testing.T) {
	next := &fakePublisher{}
	store := repository.NewMockLegacyRepository()
	h := NewHybridPublisher(next, store, zap.NewNop())
	h.SetLegacyOnly(true)

	if !h.LegacyOnly() {
		t.Fatal("mode toggle not applied")
	}
	_, _, err := h.Publish(context.Background(), "pagamento.paid", "t1", "u1",
		domain.Payload{"valor": "150,00"}, &service.PublishOptions{Urgency: domain.UrgencyHigh})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := len(next.published()); got != 0 {
		t.Errorf("new-system publishes = %d, want 0 in legacy-only mode", got)
	}
	rows := store.All()
	if len(rows) != 1 {
		t.Fatalf("legacy rows = %d, want 1", len(rows))
	}
	if rows[0].Tipo != domain.LegacyTipoFinanceiro || rows[0].Prioridade != domain.LegacyPrioridadeAlta {
		t.Errorf("row = %s/%s, want FINANCEIRO/ALTA", rows[0].Tipo, rows[0].Prioridade)
	}
}

func TestHybridPublisher_MigratedRowNotWrittenBack(t *testing.T) {
	next := &fakePublisher{}
	store := repository.NewMockLegacyRepository()
	h := NewHybridPublisher(next, store, zap.NewNop())

	payload := domain.Payload{
		"legacyId":        "leg1",
		"migrationSource": "legacy_system",
		"titulo":          "Prazo antigo",
	}
	job, suppressed, err := h.Publish(context.Background(), "prazo.notification", "t1", "u1", payload, nil)
	if err != nil || suppressed {
		t.Fatalf("publish: job=%v suppressed=%v err=%v", job, suppressed, err)
	}

	if len(next.published()) != 1 {
		t.Fatalf("new-system publishes = %d, want 1", len(next.published()))
	}
	if rows := store.All(); len(rows) != 0 {
		t.Fatalf("legacy store rows = %d, want 0: migrated rows must not return to the store", len(rows))
	}
}

func TestMapType_PrefixBuckets(t *testing.T) {
	cases := map[string]domain.LegacyType{
		"prazo.expiring_1d":  domain.LegacyTipoPrazo,
		"processo.created":   domain.LegacyTipoSistema,
		"documento.uploaded": domain.LegacyTipoDocumento,
		"mensagem.received":  domain.LegacyTipoMensagem,
		"pagamento.overdue":  domain.LegacyTipoFinanceiro,
		"contrato.expired":   domain.LegacyTipoFinanceiro,
		"tarefa.assigned":    domain.LegacyTipoOutro,
	}
	for eventType, want := range cases {
		if got := mapType(eventType); got != want {
			t.Errorf("mapType(%q) = %s, want %s", eventType, got, want)
		}
	}
}

func TestMapChannels_DefaultsToInApp(t *testing.T) {
	got := mapChannels(nil)
	if len(got) != 1 || got[0] != domain.LegacyCanalInApp {
		t.Errorf("mapChannels(nil) = %v, want [IN_APP]", got)
	}
}

func TestMapLegacyChannels_CollapsesDuplicates(t *testing.T) {
	got := mapLegacyChannels([]domain.LegacyChannel{
		domain.LegacyCanalWhatsApp,
		domain.LegacyCanalTelegram,
		domain.LegacyCanalEmail,
		domain.LegacyCanalInApp,
	})
	want := []domain.Channel{domain.ChannelEmail, domain.ChannelRealtime}
	if len(got) != len(want) {
		t.Fatalf("channels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("channels = %v, want %v", got, want)
		}
	}
}
