package repository

import (
	"context"
	"time"
)

// The scan sources are read-only views over the practice-management
// tables. The periodic scanners query them inside tolerance windows and
// publish events for the rows they return; suppression of repeats is the
// scanner's job, not the source's.

// DueDeadline is a procedural deadline row joined with enough case
// context to address and render its notifications.
type DueDeadline struct {
	ID             string
	TenantID       string
	Titulo         string
	ProcessoID     string
	ProcessoNumero string
	ResponsavelID  string
	ClienteID      string
	DueAt          time.Time
}

type DeadlineSource interface {
	// FindDeadlinesDueBetween returns open deadlines whose due time falls
	// inside [from, to].
	FindDeadlinesDueBetween(ctx context.Context, from, to time.Time) ([]*DueDeadline, error)
	// FindDeadlinesExpiredSince returns open deadlines that passed their
	// due time after the cutoff without being completed.
	FindDeadlinesExpiredSince(ctx context.Context, cutoff time.Time) ([]*DueDeadline, error)
}

// DueContract is a contract row approaching its end date.
type DueContract struct {
	ID            string
	TenantID      string
	Numero        string
	ClienteID     string
	ClienteNome   string
	ResponsavelID string
	EndsAt        time.Time
}

type ContractSource interface {
	FindContractsExpiringBetween(ctx context.Context, from, to time.Time) ([]*DueContract, error)
}

// DueDocument is a stored document whose validity is about to lapse.
type DueDocument struct {
	ID         string
	TenantID   string
	Nome       string
	ProcessoID string
	ClienteID  string
	ExpiresAt  time.Time
}

type DocumentSource interface {
	FindDocumentsExpiringBetween(ctx context.Context, from, to time.Time) ([]*DueDocument, error)
}

// DueAppointment is an agenda entry about to start, with its invited
// participants.
type DueAppointment struct {
	ID             string
	TenantID       string
	Titulo         string
	Local          string
	StartsAt       time.Time
	ParticipantIDs []string
}

type AppointmentSource interface {
	FindAppointmentsStartingBetween(ctx context.Context, from, to time.Time) ([]*DueAppointment, error)
}
