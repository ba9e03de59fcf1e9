// Package service provides business logic for the application.
//
// The lifecycle services in this package own the circulation rules: a
// copy is claimed by at most one open loan, closing a loan frees its
// copy, and a reservation converts into at most one loan. Persistence
// is injected through the narrow store interfaces below, implemented by
// *repository.Repository in production and by an in-memory fake in
// tests.
package service

import (
	"context"
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

// AllocatorStore is the persistence contract of the copy allocator.
type AllocatorStore interface {
	GetBookByID(ctx context.Context, id string) (*model.Book, error)
	AvailableCopies(ctx context.Context, bookID string) ([]*model.Copy, error)
	// ClaimCopy atomically transitions a copy to unavailable. It
	// reports false, nil when the copy was already claimed; two
	// callers can never both receive true for the same copy.
	ClaimCopy(ctx context.Context, copyID string, heldBy string) (bool, error)
}

// LoanStore is the persistence contract of the loan lifecycle manager.
// The multi-entity methods are transactional: they either apply every
// listed mutation or none.
type LoanStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetCopyByID(ctx context.Context, id string) (*model.Copy, error)
	GetReservationByID(ctx context.Context, id string) (*model.Reservation, error)

	// CreateLoanClaiming claims loan.CopyID and inserts the loan.
	CreateLoanClaiming(ctx context.Context, loan *model.Loan) error
	// CreateLoanConsumingReservation inserts the loan and deletes the
	// reservation. The loan's copy must already be claimed.
	CreateLoanConsumingReservation(ctx context.Context, loan *model.Loan, reservationID string) error
	// ReleaseCopy flips a claimed copy back to available.
	ReleaseCopy(ctx context.Context, copyID string) error

	GetLoanByID(ctx context.Context, id string) (*model.Loan, error)
	ListLoans(ctx context.Context) ([]*model.Loan, error)
	ListLoansByUser(ctx context.Context, userID string) ([]*model.Loan, error)
	// UpdateLoanDates applies a partial date update and releases the
	// copy in the same transaction when the update closes the loan.
	UpdateLoanDates(ctx context.Context, loanID string, newStart, newEnd *time.Time) (*model.Loan, error)
	// DeleteLoan removes the loan, releasing the copy if it was open.
	DeleteLoan(ctx context.Context, id string) error
}

// ReservationStore is the persistence contract of the reservation
// lifecycle manager.
type ReservationStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetBookByID(ctx context.Context, id string) (*model.Book, error)

	CreateReservation(ctx context.Context, reservation *model.Reservation) error
	GetReservationByID(ctx context.Context, id string) (*model.Reservation, error)
	ListReservations(ctx context.Context) ([]*model.Reservation, error)
	ListReservationsByUser(ctx context.Context, userID string) ([]*model.Reservation, error)
	UpdateReservation(ctx context.Context, reservation *model.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
}

// AvailabilityStore is the persistence contract of the availability
// projector.
type AvailabilityStore interface {
	GetBookByID(ctx context.Context, id string) (*model.Book, error)
	GetCopyByID(ctx context.Context, id string) (*model.Copy, error)
	CountAvailableCopies(ctx context.Context, bookID string) (int, error)
}

// EventSink receives circulation audit events. Implementations must not
// block the caller; recording is fire-and-forget and never affects the
// outcome of the operation that produced the event.
type EventSink interface {
	Record(event model.CirculationEvent)
}

// noopSink discards events. Used when no audit pipeline is wired.
type noopSink struct{}

func (noopSink) Record(model.CirculationEvent) {}
