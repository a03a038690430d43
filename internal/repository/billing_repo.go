package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexops/notify/internal/domain"
)

// Installment ties a provider payment back to its contract, client and
// responsible attorney so the payment webhook can address its events.
type Installment struct {
	ID            string
	Numero        int
	ContratoID    string
	ClienteID     string
	ClienteNome   string
	ResponsavelID string
}

type BillingSource interface {
	// FindInstallmentByPaymentID resolves the installment registered
	// under a provider payment id. ErrNotFound when the payment is not
	// ours.
	FindInstallmentByPaymentID(ctx context.Context, tenantID, paymentID string) (*Installment, error)
}

type pgBillingSource struct {
	pool *pgxpool.Pool
}

func NewPgBillingSource(pool *pgxpool.Pool) BillingSource {
	return &pgBillingSource{pool: pool}
}

func (r *pgBillingSource) FindInstallmentByPaymentID(ctx context.Context, tenantID, paymentID string) (*Installment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT pa.id, pa.numero_parcela, pa.contrato_id,
		       ct.cliente_id, cl.nome,
		       COALESCE(pr.responsavel_id, '')
		FROM contrato_parcelas pa
		JOIN contratos ct ON ct.id = pa.contrato_id AND ct.tenant_id = pa.tenant_id
		JOIN clientes cl  ON cl.id = ct.cliente_id AND cl.tenant_id = pa.tenant_id
		LEFT JOIN processos pr ON pr.id = ct.processo_id AND pr.tenant_id = pa.tenant_id
		WHERE pa.tenant_id = $1 AND pa.provider_payment_id = $2`,
		tenantID, paymentID)

	var inst Installment
	err := row.Scan(&inst.ID, &inst.Numero, &inst.ContratoID,
		&inst.ClienteID, &inst.ClienteNome, &inst.ResponsavelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan installment: %w", err)
	}
	return &inst, nil
}
