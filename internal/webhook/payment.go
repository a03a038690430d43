// Package webhook adapts inbound payment-provider callbacks into
// notification events.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/service"
)

// PaymentEvent is the provider's webhook body.
type PaymentEvent struct {
	Event   string  `json:"event"`
	Payment Payment `json:"payment"`
}

type Payment struct {
	ID                string          `json:"id"`
	Customer          string          `json:"customer"`
	BillingType       string          `json:"billingType"`
	Value             float64         `json:"value"`
	Description       string          `json:"description,omitempty"`
	DueDate           string          `json:"dueDate"`
	PaymentDate       string          `json:"paymentDate,omitempty"`
	ClientPaymentDate string          `json:"clientPaymentDate,omitempty"`
	InvoiceURL        string          `json:"invoiceUrl,omitempty"`
	BankSlipURL       string          `json:"bankSlipUrl,omitempty"`
	ExternalReference string          `json:"externalReference,omitempty"`
	Status            string          `json:"status,omitempty"`
	PixTransaction    *PixTransaction `json:"pixTransaction,omitempty"`
}

type PixTransaction struct {
	ID           string `json:"id"`
	QRCode       string `json:"qrCode"`
	QRCodeBase64 string `json:"qrCodeBase64,omitempty"`
}

// Publisher is the dispatch entry point the adapter feeds.
type Publisher interface {
	Publish(
		ctx context.Context,
		eventType, tenantID, userID string,
		payload domain.Payload,
		opts *service.PublishOptions,
	) (*domain.Job, bool, error)
}

// PaymentAdapter turns provider payment events into per-recipient
// notification publishes. Unrecognized provider events are a no-op, as
// is a payment that does not belong to any installment we track.
type PaymentAdapter struct {
	billing repository.BillingSource
	dir     repository.DirectoryRepository
	pub     Publisher
	logger  *zap.Logger
	now     func() time.Time
}

func NewPaymentAdapter(
	billing repository.BillingSource,
	dir repository.DirectoryRepository,
	pub Publisher,
	logger *zap.Logger,
) *PaymentAdapter {
	return &PaymentAdapter{
		billing: billing, dir: dir, pub: pub,
		logger: logger, now: time.Now,
	}
}

// Process handles one webhook delivery. An error return means the
// provider should redeliver; unmapped events and unknown payments
// return nil.
func (a *PaymentAdapter) Process(ctx context.Context, tenantID string, evt PaymentEvent) error {
	log := a.logger.With(
		zap.String("provider_event", evt.Event),
		zap.String("payment_id", evt.Payment.ID),
		zap.String("tenant_id", tenantID))

	inst, err := a.billing.FindInstallmentByPaymentID(ctx, tenantID, evt.Payment.ID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn("payment has no matching installment, ignoring")
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve installment: %w", err)
	}

	mapped := a.mapEvent(evt, inst)
	if mapped == nil {
		log.Debug("provider event not mapped to a notification")
		return nil
	}

	recipients, err := a.recipients(ctx, tenantID, inst)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	opts := &service.PublishOptions{Urgency: mapped.urgency, Channels: mapped.channels}
	for _, userID := range recipients {
		if _, _, err := a.pub.Publish(ctx, mapped.eventType, tenantID, userID, mapped.payload, opts); err != nil {
			log.Error("payment notification publish failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	return nil
}

type mappedEvent struct {
	eventType string
	urgency   domain.Urgency
	channels  []domain.Channel
	payload   domain.Payload
}

func (a *PaymentAdapter) mapEvent(evt PaymentEvent, inst *repository.Installment) *mappedEvent {
	p := evt.Payment
	base := domain.Payload{
		"pagamentoId":   p.ID,
		"valor":         p.Value,
		"metodo":        p.BillingType,
		"contratoId":    inst.ContratoID,
		"clienteId":     inst.ClienteID,
		"clienteNome":   inst.ClienteNome,
		"parcelaId":     inst.ID,
		"parcelaNumero": inst.Numero,
	}
	realtimeEmail := []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}
	realtimeOnly := []domain.Channel{domain.ChannelRealtime}

	switch evt.Event {
	case "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED":
		paidAt := p.PaymentDate
		if paidAt == "" {
			paidAt = p.ClientPaymentDate
		}
		if paidAt == "" {
			paidAt = a.now().Format(time.RFC3339)
		}
		base["dataPagamento"] = paidAt
		base["transactionId"] = p.ID
		return &mappedEvent{"pagamento.paid", domain.UrgencyHigh, realtimeEmail, base}

	case "PAYMENT_OVERDUE":
		base["diasAtraso"] = a.daysOverdue(p.DueDate)
		base["vencimento"] = p.DueDate
		return &mappedEvent{"pagamento.overdue", domain.UrgencyCritical, realtimeEmail, base}

	case "PAYMENT_UPDATED":
		// Only failure transitions notify.
		switch p.Status {
		case "REPROVED_BY_RISK_ANALYSIS":
			base["motivo"] = "Pagamento reprovado pela análise de risco"
		case "CHARGEBACK_DISPUTE_LOST":
			base["motivo"] = "Chargeback perdido"
		case "REFUND_REQUESTED":
			base["motivo"] = "Estorno solicitado"
		default:
			return nil
		}
		return &mappedEvent{"pagamento.failed", domain.UrgencyCritical, realtimeEmail, base}

	case "PAYMENT_REFUNDED":
		base["dataEstorno"] = a.now().Format(time.RFC3339)
		return &mappedEvent{"pagamento.estornado", domain.UrgencyHigh, realtimeEmail, base}

	case "PAYMENT_CREATED":
		if p.BillingType == "BOLETO" {
			base["boletoId"] = p.ID
			base["vencimento"] = p.DueDate
			if p.BankSlipURL != "" {
				base["boletoUrl"] = p.BankSlipURL
			}
			return &mappedEvent{"boleto.generated", domain.UrgencyMedium, realtimeEmail, base}
		}
		if p.BillingType == "PIX" && p.PixTransaction != nil {
			base["qrCode"] = p.PixTransaction.QRCode
			if p.PixTransaction.QRCodeBase64 != "" {
				base["qrCodeUrl"] = p.PixTransaction.QRCodeBase64
			}
			base["expiraEm"] = p.DueDate
			return &mappedEvent{"pix.generated", domain.UrgencyMedium, realtimeOnly, base}
		}
		return &mappedEvent{"pagamento.created", domain.UrgencyMedium, realtimeOnly, base}
	}
	return nil
}

func (a *PaymentAdapter) daysOverdue(dueDate string) int {
	due, err := time.Parse(time.RFC3339, dueDate)
	if err != nil {
		due, err = time.Parse("2006-01-02", dueDate)
	}
	if err != nil {
		return 0
	}
	days := int(a.now().Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func (a *PaymentAdapter) recipients(ctx context.Context, tenantID string, inst *repository.Installment) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	admins, err := a.dir.FindAdmins(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, u := range admins {
		add(u.ID)
	}

	finance, err := a.dir.FindByRole(ctx, tenantID, "FINANCEIRO")
	if err != nil {
		return nil, err
	}
	for _, u := range finance {
		add(u.ID)
	}

	if inst.ClienteID != "" {
		client, err := a.dir.FindClientUser(ctx, tenantID, inst.ClienteID)
		if err == nil {
			add(client.ID)
		}
	}

	add(inst.ResponsavelID)
	return out, nil
}
