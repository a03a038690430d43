package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexops/notify/internal/domain"
)

// LegacyRepository writes and reads the old notification store. The
// hybrid shim dual-writes through it, and the migrator drains it.
type LegacyRepository interface {
	// Create inserts a header row and one recipient row per destination
	// user in a single transaction.
	Create(ctx context.Context, n *domain.LegacyNotification, recipients []*domain.LegacyRecipient) error

	// FindBatch pages through header rows oldest-first for migration.
	FindBatch(ctx context.Context, tenantID string, offset, limit int) ([]*domain.LegacyNotification, error)
	FindRecipients(ctx context.Context, notificationID string) ([]*domain.LegacyRecipient, error)
}

type pgLegacyRepository struct {
	pool *pgxpool.Pool
}

func NewPgLegacyRepository(pool *pgxpool.Pool) LegacyRepository {
	return &pgLegacyRepository{pool: pool}
}

func (r *pgLegacyRepository) Create(ctx context.Context, n *domain.LegacyNotification, recipients []*domain.LegacyRecipient) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO notificacoes_legado
			(id, tenant_id, titulo, mensagem, tipo, prioridade, canais, dados, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.TenantID, n.Titulo, n.Mensagem, n.Tipo, n.Prioridade,
		legacyChannelsToStrings(n.Canais), n.Dados, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert legacy notification: %w", err)
	}

	for _, rec := range recipients {
		_, err = tx.Exec(ctx, `
			INSERT INTO notificacoes_legado_destinatarios
				(id, notificacao_id, tenant_id, usuario_id, canal, status)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			rec.ID, rec.NotificacaoID, rec.TenantID, rec.UsuarioID, rec.Canal, rec.Status,
		)
		if err != nil {
			return fmt.Errorf("insert legacy recipient: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *pgLegacyRepository) FindBatch(ctx context.Context, tenantID string, offset, limit int) ([]*domain.LegacyNotification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, titulo, mensagem, tipo, prioridade, canais, dados, created_at
		FROM notificacoes_legado
		WHERE tenant_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("find legacy batch: %w", err)
	}
	defer rows.Close()

	var result []*domain.LegacyNotification
	for rows.Next() {
		var (
			n      domain.LegacyNotification
			canais []string
		)
		err := rows.Scan(&n.ID, &n.TenantID, &n.Titulo, &n.Mensagem, &n.Tipo,
			&n.Prioridade, &canais, &n.Dados, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		n.Canais = legacyChannelsFromStrings(canais)
		result = append(result, &n)
	}
	return result, rows.Err()
}

func (r *pgLegacyRepository) FindRecipients(ctx context.Context, notificationID string) ([]*domain.LegacyRecipient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, notificacao_id, tenant_id, usuario_id, canal, status
		FROM notificacoes_legado_destinatarios
		WHERE notificacao_id = $1`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("find legacy recipients: %w", err)
	}
	defer rows.Close()

	var result []*domain.LegacyRecipient
	for rows.Next() {
		var rec domain.LegacyRecipient
		err := rows.Scan(&rec.ID, &rec.NotificacaoID, &rec.TenantID,
			&rec.UsuarioID, &rec.Canal, &rec.Status)
		if err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	return result, rows.Err()
}

func legacyChannelsToStrings(canais []domain.LegacyChannel) []string {
	out := make([]string, len(canais))
	for i, c := range canais {
		out[i] = string(c)
	}
	return out
}

func legacyChannelsFromStrings(values []string) []domain.LegacyChannel {
	out := make([]domain.LegacyChannel, len(values))
	for i, v := range values {
		out[i] = domain.LegacyChannel(v)
	}
	return out
}
