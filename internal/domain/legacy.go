package domain

import "time"

// Enumerations of the legacy notification store. Values are kept verbatim
// so dual-written rows remain readable by the old application during the
// migration window.
type (
	LegacyType     string
	LegacyPriority string
	LegacyChannel  string
	LegacyStatus   string
)

const (
	LegacyTipoSistema    LegacyType = "SISTEMA"
	LegacyTipoPrazo      LegacyType = "PRAZO"
	LegacyTipoDocumento  LegacyType = "DOCUMENTO"
	LegacyTipoMensagem   LegacyType = "MENSAGEM"
	LegacyTipoFinanceiro LegacyType = "FINANCEIRO"
	LegacyTipoOutro      LegacyType = "OUTRO"

	LegacyPrioridadeBaixa   LegacyPriority = "BAIXA"
	LegacyPrioridadeMedia   LegacyPriority = "MEDIA"
	LegacyPrioridadeAlta    LegacyPriority = "ALTA"
	LegacyPrioridadeCritica LegacyPriority = "CRITICA"

	LegacyCanalInApp    LegacyChannel = "IN_APP"
	LegacyCanalEmail    LegacyChannel = "EMAIL"
	LegacyCanalSMS      LegacyChannel = "SMS"
	LegacyCanalWhatsApp LegacyChannel = "WHATSAPP"
	LegacyCanalTelegram LegacyChannel = "TELEGRAM"
	LegacyCanalPush     LegacyChannel = "PUSH"

	LegacyStatusNaoLida   LegacyStatus = "NAO_LIDA"
	LegacyStatusLida      LegacyStatus = "LIDA"
	LegacyStatusArquivada LegacyStatus = "ARQUIVADA"
)

// LegacyNotification is a header row in the old store; one LegacyRecipient
// row exists per destination user.
type LegacyNotification struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenantId"`
	Titulo     string          `json:"titulo"`
	Mensagem   string          `json:"mensagem"`
	Tipo       LegacyType      `json:"tipo"`
	Prioridade LegacyPriority  `json:"prioridade"`
	Canais     []LegacyChannel `json:"canais"`
	Dados      Payload         `json:"dados,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type LegacyRecipient struct {
	ID            string        `json:"id"`
	NotificacaoID string        `json:"notificacaoId"`
	TenantID      string        `json:"tenantId"`
	UsuarioID     string        `json:"usuarioId"`
	Canal         LegacyChannel `json:"canal"`
	Status        LegacyStatus  `json:"status"`
}
