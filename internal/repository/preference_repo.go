package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexops/notify/internal/domain"
)

// PreferenceRepository reads stored per-user notification preferences.
// Rows may carry wildcard event types ("prazo.*", "default"); the
// resolver decides precedence, the repository just fetches candidates.
type PreferenceRepository interface {
	FindByEventTypes(ctx context.Context, tenantID, userID string, eventTypes []string) ([]*domain.Preference, error)
	Upsert(ctx context.Context, p *domain.Preference) error
}

type pgPreferenceRepository struct {
	pool *pgxpool.Pool
}

func NewPgPreferenceRepository(pool *pgxpool.Pool) PreferenceRepository {
	return &pgPreferenceRepository{pool: pool}
}

func (r *pgPreferenceRepository) FindByEventTypes(ctx context.Context, tenantID, userID string, eventTypes []string) ([]*domain.Preference, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, user_id, event_type, enabled, channels, urgency
		FROM preferences
		WHERE tenant_id = $1 AND user_id = $2 AND event_type = ANY($3)`,
		tenantID, userID, eventTypes)
	if err != nil {
		return nil, fmt.Errorf("find preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*domain.Preference
	for rows.Next() {
		var (
			p        domain.Preference
			channels []string
		)
		if err := rows.Scan(&p.TenantID, &p.UserID, &p.EventType, &p.Enabled, &channels, &p.Urgency); err != nil {
			return nil, err
		}
		p.Channels = channelsFromStrings(channels)
		prefs = append(prefs, &p)
	}
	return prefs, rows.Err()
}

func (r *pgPreferenceRepository) Upsert(ctx context.Context, p *domain.Preference) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO preferences (tenant_id, user_id, event_type, enabled, channels, urgency)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (tenant_id, user_id, event_type)
		DO UPDATE SET enabled = $4, channels = $5, urgency = $6`,
		p.TenantID, p.UserID, p.EventType, p.Enabled, channelsToStrings(p.Channels), p.Urgency)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// TemplateRepository reads tenant template rows. ErrNotFound on miss;
// the resolver falls back to built-in defaults.
type TemplateRepository interface {
	Find(ctx context.Context, tenantID, eventType string) (*domain.Template, error)
}

type pgTemplateRepository struct {
	pool *pgxpool.Pool
}

func NewPgTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &pgTemplateRepository{pool: pool}
}

func (r *pgTemplateRepository) Find(ctx context.Context, tenantID, eventType string) (*domain.Template, error) {
	var t domain.Template
	err := r.pool.QueryRow(ctx, `
		SELECT title, message FROM templates
		WHERE tenant_id = $1 AND event_type = $2`, tenantID, eventType).
		Scan(&t.Title, &t.Message)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find template: %w", err)
	}
	return &t, nil
}
