// Package prefs resolves the effective notification preference for a
// recipient: an exact tenant+user+type row wins, then wildcard rows
// ("prazo.*", "default"), then the role-default table, then the policy
// default. The role table is immutable package data and safe for
// concurrent reads from any number of workers.
package prefs

import (
	"context"
	"strings"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/policy"
	"github.com/lexops/notify/internal/repository"
)

// Effective is the resolved preference applied by the worker pipeline.
type Effective struct {
	Enabled  bool
	Channels []domain.Channel
	Urgency  domain.Urgency
}

type roleDefault struct {
	enabled  bool
	channels []domain.Channel
	urgency  domain.Urgency
}

// roleDefaults maps role -> event-type pattern -> default preference.
// Patterns use the same wildcard scheme as stored preferences.
var roleDefaults = map[string]map[string]roleDefault{
	"ADMIN": {
		"default":      {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyHigh},
		"processo.*":   {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyHigh},
		"cliente.*":    {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"financeiro.*": {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyHigh},
		"pagamento.*":  {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyHigh},
		"equipe.*":     {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyHigh},
	},
	"ADVOGADO": {
		"default":    {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"processo.*": {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyHigh},
		"cliente.*":  {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"evento.*":   {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyHigh},
		"prazo.*":    {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyCritical},
	},
	"SECRETARIA": {
		"default":    {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"processo.*": {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"cliente.*":  {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"evento.*":   {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyHigh},
		"equipe.*":   {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
	},
	"FINANCEIRO": {
		"default":     {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"contrato.*":  {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyHigh},
		"pagamento.*": {true, []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}, domain.UrgencyCritical},
	},
	"CLIENTE": {
		"default":     {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"processo.*":  {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"contrato.*":  {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyMedium},
		"pagamento.*": {true, []domain.Channel{domain.ChannelRealtime}, domain.UrgencyHigh},
	},
}

const fallbackRole = "SECRETARIA"

// Resolver looks up stored preferences and falls back through role and
// policy defaults.
type Resolver struct {
	prefs repository.PreferenceRepository
	users repository.DirectoryRepository
}

func NewResolver(prefs repository.PreferenceRepository, users repository.DirectoryRepository) *Resolver {
	return &Resolver{prefs: prefs, users: users}
}

// Resolve returns the effective preference for one recipient and event
// type. Repository misses are expected and fall through; only
// infrastructure errors propagate.
func (r *Resolver) Resolve(ctx context.Context, tenantID, userID, eventType string) (Effective, error) {
	candidates := wildcardCandidates(eventType)

	// Exact row first, then wildcard rows in specificity order.
	lookup := append([]string{eventType}, candidates...)
	stored, err := r.prefs.FindByEventTypes(ctx, tenantID, userID, lookup)
	if err != nil {
		return Effective{}, err
	}
	for _, candidate := range lookup {
		for _, p := range stored {
			if p.EventType == candidate {
				return Effective{Enabled: p.Enabled, Channels: p.Channels, Urgency: p.Urgency}, nil
			}
		}
	}

	role := fallbackRole
	if user, err := r.users.FindUser(ctx, tenantID, userID); err == nil && user.Role != "" {
		role = user.Role
	}
	return resolveFromRole(role, eventType, candidates), nil
}

// wildcardCandidates lists the pattern keys to try after an exact miss,
// most specific first: "a.b.*" before "a.*" before "default".
func wildcardCandidates(eventType string) []string {
	var candidates []string
	segments := strings.Split(eventType, ".")

	if len(segments) > 1 {
		partial := strings.Join(segments[:len(segments)-1], ".")
		if partial != segments[0] {
			candidates = append(candidates, partial+".*")
		}
	}
	if segments[0] != "" {
		candidates = append(candidates, segments[0]+".*")
	}
	return append(candidates, "default")
}

func resolveFromRole(role, eventType string, candidates []string) Effective {
	table, ok := roleDefaults[role]
	if !ok {
		table = roleDefaults[fallbackRole]
	}

	for _, key := range append([]string{eventType}, candidates...) {
		if d, ok := table[key]; ok {
			return Effective{Enabled: d.enabled, Channels: d.channels, Urgency: d.urgency}
		}
	}

	// Total fallback: policy defaults.
	urgency := policy.DefaultUrgency(eventType)
	return Effective{
		Enabled:  true,
		Channels: policy.DefaultChannels(eventType, urgency),
		Urgency:  urgency,
	}
}
