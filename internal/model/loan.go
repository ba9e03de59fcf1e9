// Package model defines domain entities for the application.
package model

import "time"

// Loan represents a borrowing record binding one User to one Copy.
// A loan exclusively claims its copy for as long as it stays open.
//
// State machine: Open (EndDate == nil) -> Closed (EndDate set).
// One-way and terminal; a closed loan is never reopened.
type Loan struct {
	ID     string `json:"id"`
	CopyID string `json:"copy_id"`
	UserID string `json:"user_id"`

	// StartDate and EndDate are calendar dates (UTC midnight).
	// A nil EndDate means the loan is still outstanding.
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// ReservationID references the reservation this loan originated
	// from, when it was created by a conversion.
	ReservationID *string `json:"reservation_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether the loan is still outstanding.
func (l *Loan) Open() bool {
	return l.EndDate == nil
}

// ValidDates reports whether the loan's date range is consistent:
// EndDate, when set, must not precede StartDate.
func (l *Loan) ValidDates() bool {
	if l.EndDate == nil {
		return true
	}
	return !l.EndDate.Before(l.StartDate)
}

// Date truncates t to a UTC calendar date. Loan dates are stored
// date-only, matching the circulation desk's day granularity.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
