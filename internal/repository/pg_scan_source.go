package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgScanSource struct {
	pool *pgxpool.Pool
}

// NewPgScanSource returns the pgx-backed implementation of every scan
// source. One struct covers all four views; the queries are independent.
func NewPgScanSource(pool *pgxpool.Pool) interface {
	DeadlineSource
	ContractSource
	DocumentSource
	AppointmentSource
} {
	return &pgScanSource{pool: pool}
}

func (s *pgScanSource) FindDeadlinesDueBetween(ctx context.Context, from, to time.Time) ([]*DueDeadline, error) {
	return s.deadlines(ctx, `
		SELECT p.id, p.tenant_id, p.titulo, p.processo_id, pr.numero,
		       COALESCE(pr.responsavel_id, ''), pr.cliente_id, p.data_vencimento
		FROM prazos p
		JOIN processos pr ON pr.id = p.processo_id AND pr.tenant_id = p.tenant_id
		WHERE p.concluido = FALSE
		  AND p.data_vencimento BETWEEN $1 AND $2`, from, to)
}

func (s *pgScanSource) FindDeadlinesExpiredSince(ctx context.Context, cutoff time.Time) ([]*DueDeadline, error) {
	return s.deadlines(ctx, `
		SELECT p.id, p.tenant_id, p.titulo, p.processo_id, pr.numero,
		       COALESCE(pr.responsavel_id, ''), pr.cliente_id, p.data_vencimento
		FROM prazos p
		JOIN processos pr ON pr.id = p.processo_id AND pr.tenant_id = p.tenant_id
		WHERE p.concluido = FALSE
		  AND p.data_vencimento < NOW()
		  AND p.data_vencimento >= $1`, cutoff)
}

func (s *pgScanSource) deadlines(ctx context.Context, query string, args ...any) ([]*DueDeadline, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find deadlines: %w", err)
	}
	defer rows.Close()

	var result []*DueDeadline
	for rows.Next() {
		var d DueDeadline
		err := rows.Scan(&d.ID, &d.TenantID, &d.Titulo, &d.ProcessoID,
			&d.ProcessoNumero, &d.ResponsavelID, &d.ClienteID, &d.DueAt)
		if err != nil {
			return nil, err
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}

func (s *pgScanSource) FindContractsExpiringBetween(ctx context.Context, from, to time.Time) ([]*DueContract, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.tenant_id, c.numero, c.cliente_id, cl.nome,
		       COALESCE(c.responsavel_id, ''), c.data_fim
		FROM contratos c
		JOIN clientes cl ON cl.id = c.cliente_id AND cl.tenant_id = c.tenant_id
		WHERE c.ativo = TRUE
		  AND c.data_fim BETWEEN $1 AND $2`, from, to)
	if err != nil {
		return nil, fmt.Errorf("find expiring contracts: %w", err)
	}
	defer rows.Close()

	var result []*DueContract
	for rows.Next() {
		var c DueContract
		err := rows.Scan(&c.ID, &c.TenantID, &c.Numero, &c.ClienteID,
			&c.ClienteNome, &c.ResponsavelID, &c.EndsAt)
		if err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

func (s *pgScanSource) FindDocumentsExpiringBetween(ctx context.Context, from, to time.Time) ([]*DueDocument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, nome, COALESCE(processo_id, ''), cliente_id, data_validade
		FROM documentos
		WHERE data_validade BETWEEN $1 AND $2`, from, to)
	if err != nil {
		return nil, fmt.Errorf("find expiring documents: %w", err)
	}
	defer rows.Close()

	var result []*DueDocument
	for rows.Next() {
		var d DueDocument
		err := rows.Scan(&d.ID, &d.TenantID, &d.Nome, &d.ProcessoID,
			&d.ClienteID, &d.ExpiresAt)
		if err != nil {
			return nil, err
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}

func (s *pgScanSource) FindAppointmentsStartingBetween(ctx context.Context, from, to time.Time) ([]*DueAppointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.tenant_id, e.titulo, COALESCE(e.local, ''),
		       e.data_inicio,
		       COALESCE(array_agg(ep.usuario_id) FILTER (WHERE ep.usuario_id IS NOT NULL), '{}')
		FROM eventos_agenda e
		LEFT JOIN eventos_agenda_participantes ep ON ep.evento_id = e.id
		WHERE e.cancelado = FALSE
		  AND e.data_inicio BETWEEN $1 AND $2
		GROUP BY e.id, e.tenant_id, e.titulo, e.local, e.data_inicio`, from, to)
	if err != nil {
		return nil, fmt.Errorf("find starting appointments: %w", err)
	}
	defer rows.Close()

	var result []*DueAppointment
	for rows.Next() {
		var a DueAppointment
		err := rows.Scan(&a.ID, &a.TenantID, &a.Titulo, &a.Local,
			&a.StartsAt, &a.ParticipantIDs)
		if err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}
