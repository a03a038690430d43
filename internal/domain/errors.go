package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used throughout the application.
// HTTP handlers translate these to status codes via a single mapError function.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidType     = errors.New("event type must be a non-empty string")
	ErrInvalidTenant   = errors.New("tenantId must be a non-empty string")
	ErrInvalidUser     = errors.New("userId must be a non-empty string")
	ErrInvalidPayload  = errors.New("payload must be an object")
	ErrInvalidUrgency  = errors.New("urgency must be CRITICAL, HIGH, MEDIUM, or INFO")
	ErrInvalidChannel  = errors.New("channel must be REALTIME, EMAIL, SMS, or PUSH")
	ErrQueueFull       = errors.New("queue is at capacity, try again later")
	ErrQueuePaused     = errors.New("queue is paused")
	ErrInvalidSchedule = errors.New("invalid recurring schedule pattern")
)

// ValidationError reports every required payload field missing from an
// event, not just the first one found.
type ValidationError struct {
	EventType     string
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload for event %s: missing required fields: %s",
		e.EventType, strings.Join(e.MissingFields, ", "))
}

// IsValidation reports whether err is (or wraps) a ValidationError or one
// of the structural validation sentinels.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrInvalidTenant) ||
		errors.Is(err, ErrInvalidUser) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrInvalidUrgency) ||
		errors.Is(err, ErrInvalidChannel)
}
