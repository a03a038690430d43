// Package template turns an event into the title/message pair stored on
// the notification. Resolution order: tenant row, built-in default for
// the event type, synthesized fallback. Placeholders in {key} form are
// substituted from the event payload.
package template

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
)

// defaults are the built-in templates, applied when a tenant has not
// customized the event type.
var defaults = map[string]domain.Template{
	"processo.created":        {Title: "Novo processo criado", Message: "Processo {numero} foi criado para {cliente}"},
	"processo.updated":        {Title: "Processo atualizado", Message: "Processo {numero} foi atualizado"},
	"processo.status_changed": {Title: "Status do processo alterado", Message: "Processo {numero} mudou para {status}"},

	"prazo.expiring_7d": {Title: "Prazo próximo do vencimento", Message: "Prazo do processo {numero} vence em 7 dias"},
	"prazo.expiring_3d": {Title: "Prazo próximo do vencimento", Message: "Prazo do processo {numero} vence em 3 dias"},
	"prazo.expiring_1d": {Title: "Prazo próximo do vencimento", Message: "Prazo do processo {numero} vence em 1 dia"},
	"prazo.expiring_2h": {Title: "Prazo urgente", Message: "Prazo do processo {numero} vence em 2 horas"},
	"prazo.expired":     {Title: "Prazo vencido", Message: "Prazo do processo {numero} venceu"},

	"cliente.created": {Title: "Novo cliente cadastrado", Message: "Cliente {nome} foi cadastrado"},
	"cliente.updated": {Title: "Cliente atualizado", Message: "Cliente {nome} foi atualizado"},

	"contrato.created": {Title: "Novo contrato criado", Message: "Contrato {numero} foi criado para {cliente}"},
	"contrato.signed":  {Title: "Contrato assinado", Message: "Contrato {numero} foi assinado"},
	"contrato.expired": {Title: "Contrato expirado", Message: "Contrato {numero} expirou"},

	"pagamento.paid":    {Title: "Pagamento confirmado", Message: "Pagamento de R$ {valor} foi confirmado"},
	"pagamento.overdue": {Title: "Pagamento em atraso", Message: "Pagamento de R$ {valor} está em atraso"},

	"evento.created":     {Title: "Novo evento agendado", Message: "Evento {titulo} foi agendado para {data}"},
	"evento.reminder_1h": {Title: "Lembrete de evento", Message: "Evento {titulo} em 1 hora"},
	"evento.reminder_1d": {Title: "Lembrete de evento", Message: "Evento {titulo} amanhã"},

	"equipe.user_invited":        {Title: "Novo convite de equipe", Message: "Convite enviado para {email}"},
	"equipe.user_joined":         {Title: "Novo membro da equipe", Message: "{nome} aceitou o convite e entrou na equipe"},
	"equipe.permissions_changed": {Title: "Permissões alteradas", Message: "Permissões de {nome} foram alteradas"},

	"tarefa.created":   {Title: "Nova tarefa criada", Message: "Tarefa {titulo} foi criada"},
	"tarefa.assigned":  {Title: "Tarefa atribuída", Message: "Tarefa {titulo} foi atribuída para você"},
	"tarefa.completed": {Title: "Tarefa concluída", Message: "Tarefa {titulo} foi concluída"},

	"documento.uploaded": {Title: "Documento enviado", Message: "Documento {nome} foi enviado"},
	"documento.approved": {Title: "Documento aprovado", Message: "Documento {nome} foi aprovado"},
	"documento.rejected": {Title: "Documento rejeitado", Message: "Documento {nome} foi rejeitado"},
	"documento.expiring": {Title: "Documento vencendo", Message: "Documento {nome} está próximo do vencimento"},

	"relatorio.generated": {Title: "Relatório gerado", Message: "Relatório {nome} foi gerado"},
	"relatorio.failed":    {Title: "Falha na geração de relatório", Message: "Falha ao gerar relatório {nome}"},
}

// Resolver renders the notification text for an event.
type Resolver struct {
	templates repository.TemplateRepository
}

func NewResolver(templates repository.TemplateRepository) *Resolver {
	return &Resolver{templates: templates}
}

// Render resolves the template for the event and substitutes payload
// values into its placeholders. It never fails with empty output: when
// neither the tenant nor the defaults know the type, a generic fallback
// is synthesized from the payload.
func (r *Resolver) Render(ctx context.Context, event domain.Event) (title, message string, err error) {
	tpl, err := r.resolve(ctx, event)
	if err != nil {
		return "", "", err
	}
	return substitute(tpl.Title, event.Payload), substitute(tpl.Message, event.Payload), nil
}

func (r *Resolver) resolve(ctx context.Context, event domain.Event) (domain.Template, error) {
	tpl, err := r.templates.Find(ctx, event.TenantID, event.Type)
	if err == nil {
		return *tpl, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Template{}, fmt.Errorf("resolve template: %w", err)
	}
	if tpl, ok := defaults[event.Type]; ok {
		return tpl, nil
	}
	return fallback(event), nil
}

// substitute replaces every {key} from the payload with its value.
// Unknown placeholders are left in place so missing data is visible
// instead of silently blank.
func substitute(text string, payload domain.Payload) string {
	for key, value := range payload {
		text = strings.ReplaceAll(text, "{"+key+"}", fmt.Sprint(value))
	}
	return text
}

// fallback synthesizes a generic template: payload-provided title and
// message win, otherwise a prettified form of the event type is used.
func fallback(event domain.Event) domain.Template {
	pretty := prettyType(event.Type)

	title := stringField(event.Payload, "title", "titulo")
	if title == "" {
		title = "Atualização: " + pretty
	}
	message := stringField(event.Payload, "message", "mensagem")
	if message == "" {
		message = fmt.Sprintf("Você recebeu uma nova atualização (%s).", pretty)
	}
	return domain.Template{Title: title, Message: message}
}

func stringField(payload domain.Payload, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// prettyType turns "prazo.expiring_7d" into "Prazo - Expiring 7d".
func prettyType(eventType string) string {
	segments := strings.Split(eventType, ".")
	for i, segment := range segments {
		segment = strings.ReplaceAll(segment, "_", " ")
		if segment != "" {
			segment = strings.ToUpper(segment[:1]) + segment[1:]
		}
		segments[i] = segment
	}
	return strings.Join(segments, " - ")
}
