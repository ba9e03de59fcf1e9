// Package model defines domain entities for the application.
package model

import "time"

// Circulation event types recorded by the audit pipeline.
const (
	EventLoanCreated          = "loan.created"
	EventLoanClosed           = "loan.closed"
	EventLoanDeleted          = "loan.deleted"
	EventReservationCreated   = "reservation.created"
	EventReservationConverted = "reservation.converted"
	EventReservationCancelled = "reservation.cancelled"
	EventAllocationFailed     = "allocation.failed"
)

// CirculationEvent represents a single circulation audit record.
type CirculationEvent struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	Type string `json:"type"`

	// Entity references. BookID is always set; the rest depend on the
	// event type (allocation.failed has no loan or copy).
	BookID        string `json:"book_id"`
	CopyID        string `json:"copy_id,omitempty"`
	LoanID        string `json:"loan_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"` // DB insertion time
}

// DailyBookStats represents pre-aggregated daily circulation counters
// for a book.
type DailyBookStats struct {
	ID     string    `json:"id"`      // Composite: book_id:date
	BookID string    `json:"book_id"` // FK to books.id
	Date   time.Time `json:"date"`    // UTC date (time component zeroed)

	LoansStarted      int64 `json:"loans_started"`
	LoansReturned     int64 `json:"loans_returned"`
	AllocationsFailed int64 `json:"allocations_failed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CirculationSummary represents aggregated circulation figures for an
// API response.
type CirculationSummary struct {
	LoansStarted      int64 `json:"loans_started"`
	LoansReturned     int64 `json:"loans_returned"`
	AllocationsFailed int64 `json:"allocations_failed"`
}

// CirculationStatsResponse represents the book stats API response.
type CirculationStatsResponse struct {
	BookID string `json:"book_id"`
	Period struct {
		From string `json:"from"` // ISO date
		To   string `json:"to"`   // ISO date
	} `json:"period"`
	Summary     CirculationSummary `json:"summary"`
	Daily       []DailyStatsPoint  `json:"daily,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// DailyStatsPoint represents circulation counters for a single day.
type DailyStatsPoint struct {
	Date              string `json:"date"` // ISO date
	LoansStarted      int64  `json:"loans_started"`
	LoansReturned     int64  `json:"loans_returned"`
	AllocationsFailed int64  `json:"allocations_failed"`
}
