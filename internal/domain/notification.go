package domain

import "time"

// Notification is the persisted result of a processed event.
// Rows are created once by a worker run and mutated only to set ReadAt.
type Notification struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	UserID    string     `json:"userId"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Payload   Payload    `json:"payload"`
	Urgency   Urgency    `json:"urgency"`
	Channels  []Channel  `json:"channels"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// Preference is an optional per-tenant, per-user, per-event-type override.
// The event type may be a wildcard pattern such as "prazo.*" or "default".
type Preference struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	UserID    string    `json:"userId"`
	EventType string    `json:"eventType"`
	Enabled   bool      `json:"enabled"`
	Channels  []Channel `json:"channels"`
	Urgency   Urgency   `json:"urgency"`
}

// Template holds a title/message pair with {key} placeholders that are
// substituted from the event payload at render time.
type Template struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// User is the narrow directory view the core needs: enough to check that
// a recipient is an active member of the tenant and to address email.
type User struct {
	ID     string
	Role   string
	Name   string
	Email  string
	Active bool
}

// ListFilter holds query parameters for paginated notification listing.
type ListFilter struct {
	TenantID   string
	UserID     string
	Type       *string
	UnreadOnly bool
	Page       int
	Limit      int
}
