package service

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfwise/shelfwise/internal/metrics"
	"github.com/shelfwise/shelfwise/internal/model"
)

// ReservationService handles reservations: a user's intent to borrow a
// book for which no copy need be available yet. Reservations are placed
// against a book, never a copy; a copy is only bound at conversion time.
type ReservationService struct {
	store   ReservationStore
	loans   *LoanService
	events  EventSink
	metrics metrics.Recorder

	now func() time.Time
}

// NewReservationService creates a new ReservationService.
func NewReservationService(store ReservationStore, loans *LoanService, events EventSink, recorder metrics.Recorder) *ReservationService {
	if events == nil {
		events = noopSink{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ReservationService{
		store:   store,
		loans:   loans,
		events:  events,
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateReservationInput defines input for placing a reservation.
type CreateReservationInput struct {
	UserID          string
	BookID          string
	ReservationDate time.Time
}

// Create places a reservation for a book. The book and user must exist;
// copy availability is not checked here.
func (s *ReservationService) Create(ctx context.Context, input CreateReservationInput) (*model.Reservation, error) {
	if _, err := s.store.GetUserByID(ctx, input.UserID); err != nil {
		return nil, mapStoreError(err)
	}
	if _, err := s.store.GetBookByID(ctx, input.BookID); err != nil {
		return nil, mapStoreError(err)
	}

	reservationDate := input.ReservationDate
	if reservationDate.IsZero() {
		reservationDate = s.now()
	}

	now := s.now().UTC()
	reservation := &model.Reservation{
		ID:        ulid.Make().String(),
		BookID:    input.BookID,
		UserID:    input.UserID,
		Date:      model.Date(reservationDate),
		CreatedAt: now,
	}

	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncReservationCreated()
	s.events.Record(model.CirculationEvent{
		Type:          model.EventReservationCreated,
		BookID:        reservation.BookID,
		UserID:        reservation.UserID,
		ReservationID: reservation.ID,
		OccurredAt:    now,
	})

	return reservation, nil
}

// Get retrieves a reservation by ID.
func (s *ReservationService) Get(ctx context.Context, id string) (*model.Reservation, error) {
	reservation, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return reservation, nil
}

// List retrieves all reservations.
func (s *ReservationService) List(ctx context.Context) ([]*model.Reservation, error) {
	return s.store.ListReservations(ctx)
}

// ListByUser retrieves all reservations for a user.
func (s *ReservationService) ListByUser(ctx context.Context, userID string) ([]*model.Reservation, error) {
	return s.store.ListReservationsByUser(ctx, userID)
}

// UpdateReservationInput defines a partial reservation update. Nil
// fields are left untouched.
type UpdateReservationInput struct {
	UserID *string
	BookID *string
	Date   *time.Time
}

// Update applies a partial update to a reservation. A new user or book
// must exist; absent fields keep their current value.
func (s *ReservationService) Update(ctx context.Context, id string, input UpdateReservationInput) (*model.Reservation, error) {
	reservation, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if input.UserID != nil {
		if _, err := s.store.GetUserByID(ctx, *input.UserID); err != nil {
			return nil, mapStoreError(err)
		}
		reservation.UserID = *input.UserID
	}
	if input.BookID != nil {
		if _, err := s.store.GetBookByID(ctx, *input.BookID); err != nil {
			return nil, mapStoreError(err)
		}
		reservation.BookID = *input.BookID
	}
	if input.Date != nil {
		reservation.Date = model.Date(*input.Date)
	}

	if err := s.store.UpdateReservation(ctx, reservation); err != nil {
		return nil, mapStoreError(err)
	}
	return reservation, nil
}

// UpdateDate moves a reservation's requested date, leaving user and
// book untouched.
func (s *ReservationService) UpdateDate(ctx context.Context, id string, date time.Time) (*model.Reservation, error) {
	return s.Update(ctx, id, UpdateReservationInput{Date: &date})
}

// ConvertToLoan turns a reservation into a loan, allocating a copy of
// the reserved book. When no copy is available the reservation stays
// active and untouched.
func (s *ReservationService) ConvertToLoan(ctx context.Context, id string) (*model.Loan, error) {
	return s.loans.CreateFromReservation(ctx, id)
}

// Cancel removes a reservation without creating a loan.
func (s *ReservationService) Cancel(ctx context.Context, id string) error {
	reservation, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}

	if err := s.store.DeleteReservation(ctx, id); err != nil {
		return mapStoreError(err)
	}

	s.metrics.IncReservationCancelled()
	s.events.Record(model.CirculationEvent{
		Type:          model.EventReservationCancelled,
		BookID:        reservation.BookID,
		UserID:        reservation.UserID,
		ReservationID: reservation.ID,
		OccurredAt:    s.now().UTC(),
	})
	return nil
}
