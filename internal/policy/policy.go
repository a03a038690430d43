// Package policy is the static lookup from event type to urgency, required
// payload fields, default channels, and queue priority. All tables are
// immutable package-level data; every function is total and returns a
// well-formed fallback for unknown event types, so callers never need
// nil-checks. No I/O happens here.
package policy

import (
	"time"

	"github.com/lexops/notify/internal/domain"
)

// defaultUrgencies maps event types to their default urgency. Types absent
// from the table default to MEDIUM.
var defaultUrgencies = map[string]domain.Urgency{
	// deadline lifecycle
	"prazo.expired":     domain.UrgencyCritical,
	"prazo.expiring_2h": domain.UrgencyCritical,
	"prazo.expiring_1d": domain.UrgencyCritical,
	"prazo.expiring_3d": domain.UrgencyHigh,
	"prazo.expiring_7d": domain.UrgencyHigh,
	"prazo.created":     domain.UrgencyHigh,
	"prazo.updated":     domain.UrgencyMedium,

	// cases
	"processo.created":           domain.UrgencyMedium,
	"processo.updated":           domain.UrgencyMedium,
	"processo.status_changed":    domain.UrgencyHigh,
	"processo.document_uploaded": domain.UrgencyMedium,

	// case movements
	"andamento.created":    domain.UrgencyMedium,
	"andamento.updated":    domain.UrgencyMedium,
	"movimentacao.created": domain.UrgencyMedium,
	"movimentacao.updated": domain.UrgencyMedium,

	// clients
	"cliente.created":           domain.UrgencyMedium,
	"cliente.updated":           domain.UrgencyMedium,
	"cliente.document_uploaded": domain.UrgencyMedium,
	"cliente.contact_added":     domain.UrgencyInfo,

	// attorneys and team
	"advogado.created":             domain.UrgencyMedium,
	"advogado.updated":             domain.UrgencyMedium,
	"advogado.avatar_updated":      domain.UrgencyInfo,
	"advogado.permissions_changed": domain.UrgencyHigh,
	"equipe.cargo_created":         domain.UrgencyMedium,
	"equipe.cargo_updated":         domain.UrgencyMedium,
	"equipe.user_invited":          domain.UrgencyHigh,
	"equipe.user_joined":           domain.UrgencyMedium,
	"equipe.permissions_changed":   domain.UrgencyHigh,
	"equipe.user_removed":          domain.UrgencyHigh,

	// contracts
	"contrato.created":           domain.UrgencyMedium,
	"contrato.updated":           domain.UrgencyMedium,
	"contrato.status_changed":    domain.UrgencyHigh,
	"contrato.signature_pending": domain.UrgencyHigh,
	"contrato.signed":            domain.UrgencyHigh,
	"contrato.expiring":          domain.UrgencyHigh,
	"contrato.expired":           domain.UrgencyCritical,
	"contrato.cancelled":         domain.UrgencyHigh,

	// payments
	"pagamento.created":   domain.UrgencyMedium,
	"pagamento.paid":      domain.UrgencyHigh,
	"pagamento.failed":    domain.UrgencyCritical,
	"pagamento.overdue":   domain.UrgencyCritical,
	"pagamento.estornado": domain.UrgencyHigh,
	"boleto.generated":    domain.UrgencyMedium,
	"pix.generated":       domain.UrgencyMedium,
	"honorario.created":   domain.UrgencyMedium,
	"honorario.updated":   domain.UrgencyMedium,
	"honorario.paid":      domain.UrgencyHigh,

	// calendar
	"evento.created":              domain.UrgencyMedium,
	"evento.updated":              domain.UrgencyMedium,
	"evento.cancelled":            domain.UrgencyHigh,
	"evento.confirmation_updated": domain.UrgencyMedium,
	"evento.reminder_1h":          domain.UrgencyHigh,
	"evento.reminder_1d":          domain.UrgencyMedium,
	"evento.google_synced":        domain.UrgencyInfo,

	// documents and powers of attorney
	"documento.uploaded":  domain.UrgencyMedium,
	"documento.approved":  domain.UrgencyMedium,
	"documento.rejected":  domain.UrgencyHigh,
	"documento.expired":   domain.UrgencyMedium,
	"procuracao.created":  domain.UrgencyMedium,
	"procuracao.updated":  domain.UrgencyMedium,
	"procuracao.signed":   domain.UrgencyMedium,
	"procuracao.expired":  domain.UrgencyCritical,
	"procuracao.revogada": domain.UrgencyMedium,

	// tasks and reports
	"tarefa.created":      domain.UrgencyMedium,
	"tarefa.updated":      domain.UrgencyMedium,
	"tarefa.assigned":     domain.UrgencyMedium,
	"tarefa.completed":    domain.UrgencyMedium,
	"relatorio.generated": domain.UrgencyMedium,
	"relatorio.exported":  domain.UrgencyInfo,
	"relatorio.failed":    domain.UrgencyHigh,

	"sistema.critical_error": domain.UrgencyCritical,
}

// requiredFields maps event types to the payload fields the factory must
// see. Types absent from the table carry no payload validation.
var requiredFields = map[string][]string{
	"processo.created":           {"processoId", "numero", "clienteNome"},
	"processo.updated":           {"processoId", "numero"},
	"processo.status_changed":    {"processoId", "numero", "oldStatus", "newStatus"},
	"processo.document_uploaded": {"processoId", "numero", "documentoId", "documentoNome"},

	"prazo.created":     {"prazoId", "processoId", "processoNumero", "titulo", "dataVencimento"},
	"prazo.updated":     {"prazoId", "processoId", "processoNumero"},
	"prazo.expiring_7d": {"prazoId", "processoId", "processoNumero", "dataVencimento"},
	"prazo.expiring_3d": {"prazoId", "processoId", "processoNumero", "dataVencimento"},
	"prazo.expiring_1d": {"prazoId", "processoId", "processoNumero", "dataVencimento"},
	"prazo.expiring_2h": {"prazoId", "processoId", "processoNumero", "dataVencimento"},
	"prazo.expired":     {"prazoId", "processoId", "processoNumero", "dataVencimento"},

	"andamento.created": {"andamentoId", "processoId", "processoNumero", "titulo"},
	"andamento.updated": {"andamentoId", "processoId", "processoNumero", "titulo"},

	"cliente.created":           {"clienteId", "nome"},
	"cliente.updated":           {"clienteId", "nome"},
	"cliente.document_uploaded": {"clienteId", "nome", "documentoId", "documentoNome"},
	"cliente.contact_added":     {"clienteId", "nome", "contatoTipo"},

	"advogado.created":             {"advogadoId", "nome"},
	"advogado.updated":             {"advogadoId", "nome"},
	"advogado.permissions_changed": {"advogadoId", "nome", "oldPermissions", "newPermissions"},

	"equipe.user_invited": {"userId", "email", "role"},
	"equipe.user_joined":  {"userId", "nome", "role"},
	"equipe.user_removed": {"userId", "nome", "role"},

	"contrato.created":           {"contratoId", "clienteId", "clienteNome"},
	"contrato.updated":           {"contratoId", "clienteId"},
	"contrato.status_changed":    {"contratoId", "oldStatus", "newStatus"},
	"contrato.signature_pending": {"contratoId", "clienteId", "clienteNome", "dataVencimento"},
	"contrato.signed":            {"contratoId", "clienteId", "clienteNome", "dataAssinatura"},
	"contrato.expiring":          {"contratoId", "clienteId", "clienteNome", "dataFim", "diasRestantes"},
	"contrato.expired":           {"contratoId", "clienteId", "clienteNome"},
	"contrato.cancelled":         {"contratoId", "clienteId", "clienteNome"},

	"pagamento.created":   {"pagamentoId", "valor", "metodo"},
	"pagamento.paid":      {"pagamentoId", "valor", "metodo", "dataPagamento"},
	"pagamento.failed":    {"pagamentoId", "valor", "motivo"},
	"pagamento.overdue":   {"pagamentoId", "valor", "diasAtraso"},
	"pagamento.estornado": {"pagamentoId", "valor", "dataEstorno"},
	"boleto.generated":    {"pagamentoId", "boletoId", "valor", "vencimento"},
	"pix.generated":       {"pagamentoId", "valor", "qrCode"},

	"honorario.created": {"honorarioId", "contratoId", "valor"},
	"honorario.paid":    {"honorarioId", "contratoId", "valor", "dataPagamento"},

	"evento.created":     {"eventoId", "titulo", "dataInicio"},
	"evento.updated":     {"eventoId", "titulo"},
	"evento.cancelled":   {"eventoId", "titulo"},
	"evento.reminder_1h": {"eventoId", "titulo", "dataInicio"},
	"evento.reminder_1d": {"eventoId", "titulo", "dataInicio"},

	"documento.uploaded": {"documentoId", "nome"},
	"documento.approved": {"documentoId", "nome", "aprovadoPor"},
	"documento.rejected": {"documentoId", "nome", "motivo"},
	"documento.expired":  {"documentoId", "nome", "dataExpiracao"},

	"procuracao.created": {"procuracaoId", "numero"},
	"procuracao.expired": {"procuracaoId", "numero", "dataExpiracao"},

	"tarefa.created":   {"tarefaId", "titulo"},
	"tarefa.assigned":  {"tarefaId", "titulo", "responsavelId", "responsavelNome"},
	"tarefa.completed": {"tarefaId", "titulo", "responsavelId", "responsavelNome"},

	"relatorio.generated": {"relatorioId", "tipo", "dataGeracao"},
	"relatorio.failed":    {"relatorioId", "tipo", "erro"},
}

// DefaultUrgency returns the default urgency for an event type.
// Unknown types fall back to MEDIUM.
func DefaultUrgency(eventType string) domain.Urgency {
	if u, ok := defaultUrgencies[eventType]; ok {
		return u
	}
	return domain.UrgencyMedium
}

// RequiredFields returns the payload fields the factory must validate for
// an event type. Unknown types return nil, which means no validation.
func RequiredFields(eventType string) []string {
	return requiredFields[eventType]
}

// Known reports whether the event type appears in any policy table.
// Unknown types are permitted everywhere; callers only use this to warn.
func Known(eventType string) bool {
	if _, ok := defaultUrgencies[eventType]; ok {
		return true
	}
	_, ok := requiredFields[eventType]
	return ok
}

// DefaultChannels returns the channels used when neither the event nor the
// recipient's preferences pick any: CRITICAL and HIGH go out on
// REALTIME+EMAIL, everything else on REALTIME only.
func DefaultChannels(eventType string, urgency domain.Urgency) []domain.Channel {
	if urgency == "" {
		urgency = DefaultUrgency(eventType)
	}
	switch urgency {
	case domain.UrgencyCritical, domain.UrgencyHigh:
		return []domain.Channel{domain.ChannelRealtime, domain.ChannelEmail}
	default:
		return []domain.Channel{domain.ChannelRealtime}
	}
}

// QueuePriority converts urgency to the queue's integer priority.
// This is the single definition in the codebase; the queue, the service,
// and the job records all derive priority through it.
func QueuePriority(urgency domain.Urgency) int {
	switch urgency {
	case domain.UrgencyCritical:
		return 1
	case domain.UrgencyHigh:
		return 2
	case domain.UrgencyMedium:
		return 3
	case domain.UrgencyInfo:
		return 4
	default:
		return 3
	}
}

// CanDisable reports whether a user preference may turn the event type
// off. CRITICAL types always deliver.
func CanDisable(eventType string) bool {
	return DefaultUrgency(eventType) != domain.UrgencyCritical
}

// Expiry returns how long a persisted notification of the given urgency
// stays relevant before housekeeping may purge it.
func Expiry(urgency domain.Urgency) time.Duration {
	switch urgency {
	case domain.UrgencyCritical:
		return 7 * 24 * time.Hour
	case domain.UrgencyHigh:
		return 3 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
