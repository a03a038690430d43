package domain

// Urgency drives default channels, queue priority, and row expiry.
type Urgency string

const (
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyInfo     Urgency = "INFO"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyInfo:
		return true
	}
	return false
}

// Channel is the delivery mechanism for a notification.
type Channel string

const (
	ChannelRealtime Channel = "REALTIME"
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelPush     Channel = "PUSH"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelRealtime, ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// Payload is a string-keyed, depth-limited map of event data.
type Payload map[string]any

// Event is the transient unit producers publish. It is validated and
// sanitized by the factory, serialized into a queue job, and discarded;
// only the Notification row derived from it is persisted.
//
// Urgency and Channels are optional at creation time: an empty Urgency
// means "use the policy default", a nil Channels slice means "let the
// recipient's preferences decide". An explicitly empty (non-nil) channel
// slice is preserved as-is.
type Event struct {
	Type     string    `json:"type"`
	TenantID string    `json:"tenantId"`
	UserID   string    `json:"userId"`
	Payload  Payload   `json:"payload"`
	Urgency  Urgency   `json:"urgency,omitempty"`
	Channels []Channel `json:"channels,omitempty"`
}

// EventOptions carries the optional overrides accepted by the factory.
type EventOptions struct {
	Urgency  Urgency
	Channels []Channel
}
