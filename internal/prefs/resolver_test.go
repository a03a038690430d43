package prefs

import (
	"context"
	"testing"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
)

func setup() (*Resolver, *repository.MockPreferenceRepository, *repository.MockDirectoryRepository) {
	prefRepo := repository.NewMockPreferenceRepository()
	dirRepo := repository.NewMockDirectoryRepository()
	return NewResolver(prefRepo, dirRepo), prefRepo, dirRepo
}

func TestResolve_ExactRowWins(t *testing.T) {
	r, prefRepo, dirRepo := setup()
	dirRepo.AddUser("t1", domain.User{ID: "u1", Role: "ADVOGADO", Active: true})
	_ = prefRepo.Upsert(context.Background(), &domain.Preference{
		TenantID: "t1", UserID: "u1", EventType: "prazo.expiring_1d",
		Enabled: false, Channels: []domain.Channel{domain.ChannelEmail},
		Urgency: domain.UrgencyHigh,
	})
	// A broader wildcard row that must lose to the exact one.
	_ = prefRepo.Upsert(context.Background(), &domain.Preference{
		TenantID: "t1", UserID: "u1", EventType: "prazo.*",
		Enabled: true, Channels: []domain.Channel{domain.ChannelRealtime},
		Urgency: domain.UrgencyCritical,
	})

	got, err := r.Resolve(context.Background(), "t1", "u1", "prazo.expiring_1d")
	if err != nil {
		t.Fatal(err)
	}
	if got.Enabled {
		t.Error("exact row disables this type; wildcard must not override")
	}
	if got.Urgency != domain.UrgencyHigh {
		t.Errorf("urgency = %s, want HIGH from the exact row", got.Urgency)
	}
}

func TestResolve_WildcardFallback(t *testing.T) {
	r, prefRepo, dirRepo := setup()
	dirRepo.AddUser("t1", domain.User{ID: "u1", Role: "ADVOGADO", Active: true})
	_ = prefRepo.Upsert(context.Background(), &domain.Preference{
		TenantID: "t1", UserID: "u1", EventType: "prazo.*",
		Enabled: true, Channels: []domain.Channel{domain.ChannelEmail},
		Urgency: domain.UrgencyHigh,
	})

	got, err := r.Resolve(context.Background(), "t1", "u1", "prazo.expiring_1d")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Channels) != 1 || got.Channels[0] != domain.ChannelEmail {
		t.Errorf("channels = %v, want [EMAIL] from the prazo.* row", got.Channels)
	}
}

func TestResolve_DefaultRowBeforeRoleTable(t *testing.T) {
	r, prefRepo, dirRepo := setup()
	dirRepo.AddUser("t1", domain.User{ID: "u1", Role: "ADMIN", Active: true})
	_ = prefRepo.Upsert(context.Background(), &domain.Preference{
		TenantID: "t1", UserID: "u1", EventType: "default",
		Enabled: false, Urgency: domain.UrgencyInfo,
	})

	got, err := r.Resolve(context.Background(), "t1", "u1", "equipe.created")
	if err != nil {
		t.Fatal(err)
	}
	if got.Enabled {
		t.Error("stored default row must beat the role table")
	}
}

func TestResolve_RoleDefaults(t *testing.T) {
	r, _, dirRepo := setup()
	dirRepo.AddUser("t1", domain.User{ID: "adv", Role: "ADVOGADO", Active: true})
	dirRepo.AddUser("t1", domain.User{ID: "fin", Role: "FINANCEIRO", Active: true})

	got, err := r.Resolve(context.Background(), "t1", "adv", "prazo.expiring_1d")
	if err != nil {
		t.Fatal(err)
	}
	if got.Urgency != domain.UrgencyCritical {
		t.Errorf("ADVOGADO prazo.* urgency = %s, want CRITICAL", got.Urgency)
	}

	got, err = r.Resolve(context.Background(), "t1", "fin", "pagamento.overdue")
	if err != nil {
		t.Fatal(err)
	}
	if got.Urgency != domain.UrgencyCritical {
		t.Errorf("FINANCEIRO pagamento.* urgency = %s, want CRITICAL", got.Urgency)
	}
}

func TestResolve_UnknownRoleFallsBack(t *testing.T) {
	r, _, dirRepo := setup()
	dirRepo.AddUser("t1", domain.User{ID: "u1", Role: "ESTAGIARIO", Active: true})

	got, err := r.Resolve(context.Background(), "t1", "u1", "processo.updated")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Enabled {
		t.Error("unknown role should inherit the fallback role defaults, enabled")
	}
}

func TestResolve_MissingUserUsesFallbackRole(t *testing.T) {
	r, _, _ := setup()

	got, err := r.Resolve(context.Background(), "t1", "ghost", "cliente.created")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Enabled {
		t.Error("directory miss should not fail resolution")
	}
}

func TestWildcardCandidates(t *testing.T) {
	cases := []struct {
		eventType string
		want      []string
	}{
		{"prazo.expiring_1d", []string{"prazo.*", "default"}},
		{"prazo.expiring_1d.urgente", []string{"prazo.expiring_1d.*", "prazo.*", "default"}},
		{"ping", []string{"ping.*", "default"}},
	}
	for _, tc := range cases {
		got := wildcardCandidates(tc.eventType)
		if len(got) != len(tc.want) {
			t.Errorf("%s: candidates = %v, want %v", tc.eventType, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: candidates = %v, want %v", tc.eventType, got, tc.want)
				break
			}
		}
	}
}
