// Package legacy bridges the new dispatch pipeline and the old
// notification store during the migration window. The hybrid publisher
// dual-writes, and the migrator drains historical rows into the new
// pipeline.
package legacy

import (
	"fmt"
	"strings"

	"github.com/lexops/notify/internal/domain"
)

// typeByPrefix buckets event types into the old store's coarse
// categories by their first segment.
var typeByPrefix = map[string]domain.LegacyType{
	"system":     domain.LegacyTipoSistema,
	"processo":   domain.LegacyTipoSistema,
	"equipe":     domain.LegacyTipoSistema,
	"advogado":   domain.LegacyTipoSistema,
	"prazo":      domain.LegacyTipoPrazo,
	"andamento":  domain.LegacyTipoPrazo,
	"documento":  domain.LegacyTipoDocumento,
	"mensagem":   domain.LegacyTipoMensagem,
	"pagamento":  domain.LegacyTipoFinanceiro,
	"financeiro": domain.LegacyTipoFinanceiro,
	"honorario":  domain.LegacyTipoFinanceiro,
	"boleto":     domain.LegacyTipoFinanceiro,
	"pix":        domain.LegacyTipoFinanceiro,
	"contrato":   domain.LegacyTipoFinanceiro,
}

func mapType(eventType string) domain.LegacyType {
	prefix, _, _ := strings.Cut(eventType, ".")
	if t, ok := typeByPrefix[prefix]; ok {
		return t
	}
	return domain.LegacyTipoOutro
}

var priorityByUrgency = map[domain.Urgency]domain.LegacyPriority{
	domain.UrgencyCritical: domain.LegacyPrioridadeCritica,
	domain.UrgencyHigh:     domain.LegacyPrioridadeAlta,
	domain.UrgencyMedium:   domain.LegacyPrioridadeMedia,
	domain.UrgencyInfo:     domain.LegacyPrioridadeBaixa,
}

func mapPriority(u domain.Urgency) domain.LegacyPriority {
	if p, ok := priorityByUrgency[u]; ok {
		return p
	}
	return domain.LegacyPrioridadeMedia
}

var legacyChannelByNew = map[domain.Channel]domain.LegacyChannel{
	domain.ChannelRealtime: domain.LegacyCanalInApp,
	domain.ChannelEmail:    domain.LegacyCanalEmail,
	domain.ChannelSMS:      domain.LegacyCanalSMS,
	domain.ChannelPush:     domain.LegacyCanalPush,
}

func mapChannels(channels []domain.Channel) []domain.LegacyChannel {
	if len(channels) == 0 {
		return []domain.LegacyChannel{domain.LegacyCanalInApp}
	}
	out := make([]domain.LegacyChannel, len(channels))
	for i, ch := range channels {
		mapped, ok := legacyChannelByNew[ch]
		if !ok {
			mapped = domain.LegacyCanalInApp
		}
		out[i] = mapped
	}
	return out
}

// Reverse mappings, used by the migrator when re-publishing old rows
// through the new pipeline. The coarse legacy categories map onto
// generic event types with no required payload fields, so a row with
// sparse data still migrates.
var newTypeByLegacy = map[domain.LegacyType]string{
	domain.LegacyTipoSistema:    "system.notification",
	domain.LegacyTipoPrazo:      "prazo.notification",
	domain.LegacyTipoDocumento:  "documento.notification",
	domain.LegacyTipoMensagem:   "mensagem.received",
	domain.LegacyTipoFinanceiro: "financeiro.payment",
	domain.LegacyTipoOutro:      "general.notification",
}

func mapLegacyType(t domain.LegacyType) string {
	if nt, ok := newTypeByLegacy[t]; ok {
		return nt
	}
	return "general.notification"
}

var urgencyByPriority = map[domain.LegacyPriority]domain.Urgency{
	domain.LegacyPrioridadeCritica: domain.UrgencyCritical,
	domain.LegacyPrioridadeAlta:    domain.UrgencyHigh,
	domain.LegacyPrioridadeMedia:   domain.UrgencyMedium,
	domain.LegacyPrioridadeBaixa:   domain.UrgencyInfo,
}

func mapLegacyPriority(p domain.LegacyPriority) domain.Urgency {
	if u, ok := urgencyByPriority[p]; ok {
		return u
	}
	return domain.UrgencyMedium
}

// WhatsApp and Telegram have no counterpart in the new pipeline and
// degrade to email.
var newChannelByLegacy = map[domain.LegacyChannel]domain.Channel{
	domain.LegacyCanalInApp:    domain.ChannelRealtime,
	domain.LegacyCanalEmail:    domain.ChannelEmail,
	domain.LegacyCanalSMS:      domain.ChannelSMS,
	domain.LegacyCanalWhatsApp: domain.ChannelEmail,
	domain.LegacyCanalTelegram: domain.ChannelEmail,
	domain.LegacyCanalPush:     domain.ChannelPush,
}

func mapLegacyChannels(channels []domain.LegacyChannel) []domain.Channel {
	out := make([]domain.Channel, 0, len(channels))
	seen := map[domain.Channel]bool{}
	for _, ch := range channels {
		mapped, ok := newChannelByLegacy[ch]
		if !ok {
			mapped = domain.ChannelRealtime
		}
		if !seen[mapped] {
			seen[mapped] = true
			out = append(out, mapped)
		}
	}
	return out
}

// legacyContent synthesizes the old store's titulo and mensagem from an
// event, since the new pipeline renders templates only at delivery
// time.
func legacyContent(event domain.Event) (titulo, mensagem string) {
	p := event.Payload
	switch {
	case strings.HasPrefix(event.Type, "prazo.expiring"):
		return "Prazo Próximo do Vencimento",
			fmt.Sprintf("Prazo %q vence em %v dias.", str(p, "titulo", "sem título"), val(p, "diasRestantes", "poucos"))
	case event.Type == "prazo.expired":
		return "Prazo Vencido",
			fmt.Sprintf("Prazo %q do processo %s venceu.", str(p, "titulo", "sem título"), str(p, "processoNumero", "sem número"))
	case event.Type == "processo.created":
		return "Novo Processo Criado",
			fmt.Sprintf("Processo %q foi criado com sucesso.", str(p, "numero", "sem número"))
	case event.Type == "processo.updated":
		return "Processo Atualizado",
			fmt.Sprintf("Processo %q foi atualizado.", str(p, "numero", "sem número"))
	case event.Type == "processo.status_changed":
		return "Status do Processo Alterado",
			fmt.Sprintf("Processo %q mudou de %v para %v.",
				str(p, "numero", "sem número"),
				val(p, "oldStatus", "status anterior"),
				val(p, "newStatus", "novo status"))
	case event.Type == "pagamento.paid":
		return "Pagamento Confirmado",
			fmt.Sprintf("Pagamento de R$ %v foi confirmado.", val(p, "valor", "0,00"))
	case event.Type == "evento.created":
		return "Novo Evento Agendado",
			fmt.Sprintf("Evento %q foi agendado para %v.", str(p, "titulo", "sem título"), val(p, "dataInicio", "data não informada"))
	default:
		return str(p, "titulo", "Notificação"),
			str(p, "mensagem", "Nova notificação disponível.")
	}
}

func str(p domain.Payload, key, fallback string) string {
	if s, ok := p[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func val(p domain.Payload, key string, fallback any) any {
	if v, ok := p[key]; ok && v != nil {
		return v
	}
	return fallback
}
