// Package factory creates canonical events from producer input: it
// validates required payload fields against the policy table, strips
// sensitive data, bounds payload depth, fills urgency defaults, and
// enforces the closed urgency/channel sets.
package factory

import (
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/policy"
)

// Factory builds validated events. The sensitive-key list and depth limit
// are explicit configuration so tests and tenants with stricter rules can
// tighten them.
type Factory struct {
	sensitiveKeys map[string]struct{}
	maxDepth      int
	logger        *zap.Logger
}

// defaultSensitiveKeys covers document numbers, credentials, tokens, and
// card data. Matching keys are dropped from payloads with a warning.
var defaultSensitiveKeys = []string{
	"cpf", "cnpj", "rg",
	"senha", "password",
	"token", "secret", "apiKey",
	"creditCard", "cardNumber", "cvv", "cvc",
}

func New(logger *zap.Logger) *Factory {
	return NewWith(logger, defaultSensitiveKeys, 3)
}

// NewWith constructs a factory with an explicit sensitive-key list and
// payload depth limit.
func NewWith(logger *zap.Logger, sensitiveKeys []string, maxDepth int) *Factory {
	keys := make(map[string]struct{}, len(sensitiveKeys))
	for _, k := range sensitiveKeys {
		keys[k] = struct{}{}
	}
	return &Factory{sensitiveKeys: keys, maxDepth: maxDepth, logger: logger}
}

// CreateEvent validates and canonicalizes a single event.
//
// Unknown event types are permitted (the policy table favors extensibility
// over strict enumeration); they only produce a warning. Missing required
// fields fail with a ValidationError naming every absent field. An
// explicitly provided channel list is kept as-is, even when empty; a nil
// list stays nil so the service can consult the recipient's preferences.
func (f *Factory) CreateEvent(
	eventType, tenantID, userID string,
	payload domain.Payload,
	opts *domain.EventOptions,
) (domain.Event, error) {
	if !policy.Known(eventType) {
		f.logger.Warn("unknown event type, allowing for extensibility",
			zap.String("event_type", eventType))
	}

	if err := f.checkRequiredFields(eventType, payload); err != nil {
		return domain.Event{}, err
	}

	sanitized := f.Sanitize(payload)

	urgency := policy.DefaultUrgency(eventType)
	var channels []domain.Channel
	if opts != nil {
		if opts.Urgency != "" {
			urgency = opts.Urgency
		}
		channels = opts.Channels
	}

	ev := domain.Event{
		Type:     eventType,
		TenantID: tenantID,
		UserID:   userID,
		Payload:  sanitized,
		Urgency:  urgency,
		Channels: channels,
	}

	if err := validateStructure(ev); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

// CreateBatch applies the full CreateEvent pipeline once per user ID.
// The first failing user aborts the batch; validation is deterministic,
// so a shared payload either passes for all users or none.
func (f *Factory) CreateBatch(
	eventType, tenantID string,
	userIDs []string,
	payload domain.Payload,
	opts *domain.EventOptions,
) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(userIDs))
	for _, userID := range userIDs {
		ev, err := f.CreateEvent(eventType, tenantID, userID, payload, opts)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (f *Factory) checkRequiredFields(eventType string, payload domain.Payload) error {
	required := policy.RequiredFields(eventType)
	if len(required) == 0 {
		return nil
	}

	var missing []string
	for _, field := range required {
		v, ok := payload[field]
		if !ok || v == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &domain.ValidationError{EventType: eventType, MissingFields: missing}
	}
	return nil
}

func validateStructure(ev domain.Event) error {
	if ev.Type == "" {
		return domain.ErrInvalidType
	}
	if ev.TenantID == "" {
		return domain.ErrInvalidTenant
	}
	if ev.UserID == "" {
		return domain.ErrInvalidUser
	}
	if ev.Payload == nil {
		return domain.ErrInvalidPayload
	}
	if !ev.Urgency.IsValid() {
		return domain.ErrInvalidUrgency
	}
	for _, ch := range ev.Channels {
		if !ch.IsValid() {
			return domain.ErrInvalidChannel
		}
	}
	return nil
}
