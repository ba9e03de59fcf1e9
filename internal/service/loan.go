package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfwise/shelfwise/internal/metrics"
	"github.com/shelfwise/shelfwise/internal/model"
)

// LoanService handles the loan lifecycle: creation (direct or from a
// reservation), date updates, closing, and deletion. Every path that
// changes a loan's open/closed state keeps the attached copy's
// availability consistent within the same transaction.
type LoanService struct {
	store     LoanStore
	allocator *Allocator
	events    EventSink
	metrics   metrics.Recorder

	// now returns the current processing time. Overridden in tests.
	now func() time.Time
}

// NewLoanService creates a new LoanService.
func NewLoanService(store LoanStore, allocator *Allocator, events EventSink, recorder metrics.Recorder) *LoanService {
	if events == nil {
		events = noopSink{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LoanService{
		store:     store,
		allocator: allocator,
		events:    events,
		metrics:   recorder,
		now:       time.Now,
	}
}

// CreateLoanInput defines input for creating a loan directly against a
// known copy.
type CreateLoanInput struct {
	UserID    string
	CopyID    string
	StartDate time.Time
}

// Create creates a loan that claims the given copy. Fails with
// ErrCopyAlreadyLoaned when the copy is attached to an open loan.
func (s *LoanService) Create(ctx context.Context, input CreateLoanInput) (*model.Loan, error) {
	if _, err := s.store.GetUserByID(ctx, input.UserID); err != nil {
		return nil, mapStoreError(err)
	}

	copy, err := s.store.GetCopyByID(ctx, input.CopyID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	startDate := input.StartDate
	if startDate.IsZero() {
		startDate = s.now()
	}

	now := s.now().UTC()
	loan := &model.Loan{
		ID:        ulid.Make().String(),
		CopyID:    input.CopyID,
		UserID:    input.UserID,
		StartDate: model.Date(startDate),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateLoanClaiming(ctx, loan); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncLoanCreated()
	s.events.Record(model.CirculationEvent{
		Type:       model.EventLoanCreated,
		BookID:     copy.BookID,
		CopyID:     loan.CopyID,
		LoanID:     loan.ID,
		UserID:     loan.UserID,
		OccurredAt: now,
	})

	return loan, nil
}

// CreateFromReservation allocates a copy of the reserved book and
// converts the reservation into a loan. The loan's start date is the
// current processing date, not the reservation's requested date. On
// ErrNoCopyAvailable nothing is mutated and the reservation stays in
// the active set.
func (s *LoanService) CreateFromReservation(ctx context.Context, reservationID string) (*model.Loan, error) {
	reservation, err := s.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	copy, err := s.allocator.Allocate(ctx, reservation.BookID, reservation.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	loan := &model.Loan{
		ID:            ulid.Make().String(),
		CopyID:        copy.ID,
		UserID:        reservation.UserID,
		StartDate:     model.Date(now),
		ReservationID: &reservation.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateLoanConsumingReservation(ctx, loan, reservation.ID); err != nil {
		// Undo the claim so the failed conversion leaves no mutation.
		if relErr := s.store.ReleaseCopy(ctx, copy.ID); relErr != nil {
			return nil, errors.Join(mapStoreError(err), fmt.Errorf("release copy after failed conversion: %w", relErr))
		}
		return nil, mapStoreError(err)
	}

	s.metrics.IncLoanCreated()
	s.metrics.IncReservationConverted()
	s.events.Record(model.CirculationEvent{
		Type:          model.EventReservationConverted,
		BookID:        reservation.BookID,
		CopyID:        loan.CopyID,
		LoanID:        loan.ID,
		UserID:        loan.UserID,
		ReservationID: reservation.ID,
		OccurredAt:    now,
	})

	return loan, nil
}

// Get retrieves a loan by ID.
func (s *LoanService) Get(ctx context.Context, id string) (*model.Loan, error) {
	loan, err := s.store.GetLoanByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return loan, nil
}

// List retrieves all loans.
func (s *LoanService) List(ctx context.Context) ([]*model.Loan, error) {
	return s.store.ListLoans(ctx)
}

// ListByUser retrieves all loans for a user.
func (s *LoanService) ListByUser(ctx context.Context, userID string) ([]*model.Loan, error) {
	return s.store.ListLoansByUser(ctx, userID)
}

// UpdateDates applies a partial date update: each field updates only
// when provided. Setting the end date closes the loan and frees its
// copy in the same transaction. A closed loan cannot be closed again
// or reopened; only its start date may still be corrected.
func (s *LoanService) UpdateDates(ctx context.Context, loanID string, newStart, newEnd *time.Time) (*model.Loan, error) {
	before, err := s.store.GetLoanByID(ctx, loanID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	loan, err := s.store.UpdateLoanDates(ctx, loanID, newStart, newEnd)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if before.Open() && !loan.Open() {
		s.metrics.IncLoanClosed()
		s.recordLoanEvent(ctx, model.EventLoanClosed, loan)
	}

	return loan, nil
}

// Close closes a loan by setting its end date. Equivalent to
// UpdateDates with only the end date provided.
func (s *LoanService) Close(ctx context.Context, loanID string, endDate time.Time) (*model.Loan, error) {
	return s.UpdateDates(ctx, loanID, nil, &endDate)
}

// Delete removes a loan. Deleting an open loan frees its copy; the copy
// is never left stranded unavailable.
func (s *LoanService) Delete(ctx context.Context, id string) error {
	loan, err := s.store.GetLoanByID(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}

	if err := s.store.DeleteLoan(ctx, id); err != nil {
		return mapStoreError(err)
	}

	s.metrics.IncLoanDeleted()
	s.recordLoanEvent(ctx, model.EventLoanDeleted, loan)
	return nil
}

// recordLoanEvent emits an audit event for a loan, resolving the book
// through the copy. Events are best effort; a failed lookup drops the
// event rather than failing the operation.
func (s *LoanService) recordLoanEvent(ctx context.Context, eventType string, loan *model.Loan) {
	copy, err := s.store.GetCopyByID(ctx, loan.CopyID)
	if err != nil {
		return
	}

	s.events.Record(model.CirculationEvent{
		Type:       eventType,
		BookID:     copy.BookID,
		CopyID:     loan.CopyID,
		LoanID:     loan.ID,
		UserID:     loan.UserID,
		OccurredAt: s.now().UTC(),
	})
}
