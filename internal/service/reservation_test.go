package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

func newReservationFixture(t *testing.T) (*memStore, *ReservationService, *captureSink) {
	t.Helper()
	store := newMemStore()
	sink := &captureSink{}
	allocator := NewAllocator(store, sink, nil)
	loans := NewLoanService(store, allocator, sink, nil)
	reservations := NewReservationService(store, loans, sink, nil)
	return store, reservations, sink
}

func TestCreateReservation(t *testing.T) {
	store, reservations, sink := newReservationFixture(t)
	book := store.addBook("Wanted Title")
	user := store.addUser("keen@example.com")

	requested := time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC)
	reservation, err := reservations.Create(context.Background(), CreateReservationInput{
		UserID:          user.ID,
		BookID:          book.ID,
		ReservationDate: requested,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !reservation.Date.Equal(model.Date(requested)) {
		t.Errorf("reservation date = %v, want %v", reservation.Date, model.Date(requested))
	}

	if events := sink.byType(model.EventReservationCreated); len(events) != 1 {
		t.Errorf("expected 1 reservation.created event, got %d", len(events))
	}
}

func TestCreateReservationWithoutAvailableCopies(t *testing.T) {
	store, reservations, _ := newReservationFixture(t)
	book := store.addBook("Fully Loaned")
	user := store.addUser("hopeful@example.com")

	// Zero copies exist; reserving is still allowed. Availability only
	// matters at conversion time.
	_, err := reservations.Create(context.Background(), CreateReservationInput{
		UserID: user.ID,
		BookID: book.ID,
	})
	if err != nil {
		t.Fatalf("reservation should not require an available copy: %v", err)
	}
}

func TestCreateReservationReferentialChecks(t *testing.T) {
	store, reservations, _ := newReservationFixture(t)
	book := store.addBook("Checked Title")
	user := store.addUser("valid@example.com")

	tests := []struct {
		name    string
		input   CreateReservationInput
		wantErr error
	}{
		{"unknown_user", CreateReservationInput{UserID: "nobody", BookID: book.ID}, ErrUserNotFound},
		{"unknown_book", CreateReservationInput{UserID: user.ID, BookID: "nothing"}, ErrBookNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := reservations.Create(context.Background(), test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestUpdateReservation(t *testing.T) {
	store, reservations, _ := newReservationFixture(t)
	book := store.addBook("Rescheduled")
	otherBook := store.addBook("Substitute")
	user := store.addUser("flexible@example.com")
	otherUser := store.addUser("colleague@example.com")

	placed := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	moved := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	unknown := "nothing"

	tests := []struct {
		name    string
		input   UpdateReservationInput
		wantErr error
		check   func(t *testing.T, r *model.Reservation)
	}{
		{
			name:  "date_only",
			input: UpdateReservationInput{Date: &moved},
			check: func(t *testing.T, r *model.Reservation) {
				if !r.Date.Equal(model.Date(moved)) {
					t.Errorf("date = %v, want %v", r.Date, model.Date(moved))
				}
				if r.UserID != user.ID || r.BookID != book.ID {
					t.Errorf("user/book changed: %s/%s", r.UserID, r.BookID)
				}
			},
		},
		{
			name:  "user_only",
			input: UpdateReservationInput{UserID: &otherUser.ID},
			check: func(t *testing.T, r *model.Reservation) {
				if r.UserID != otherUser.ID {
					t.Errorf("user = %s, want %s", r.UserID, otherUser.ID)
				}
				if r.BookID != book.ID || !r.Date.Equal(model.Date(placed)) {
					t.Errorf("book/date changed: %s/%v", r.BookID, r.Date)
				}
			},
		},
		{
			name:  "book_only",
			input: UpdateReservationInput{BookID: &otherBook.ID},
			check: func(t *testing.T, r *model.Reservation) {
				if r.BookID != otherBook.ID {
					t.Errorf("book = %s, want %s", r.BookID, otherBook.ID)
				}
			},
		},
		{
			name:    "unknown_user",
			input:   UpdateReservationInput{UserID: &unknown},
			wantErr: ErrUserNotFound,
		},
		{
			name:    "unknown_book",
			input:   UpdateReservationInput{BookID: &unknown},
			wantErr: ErrBookNotFound,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			reservation := store.addReservation(book.ID, user.ID, placed)
			updated, err := reservations.Update(context.Background(), reservation.ID, test.input)
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("expected %v, got %v", test.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			test.check(t, updated)
		})
	}
}

func TestUpdateReservationDate(t *testing.T) {
	store, reservations, _ := newReservationFixture(t)
	book := store.addBook("Rescheduled Again")
	user := store.addUser("flexible@example.com")
	reservation := store.addReservation(book.ID, user.ID, time.Now())

	moved := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	updated, err := reservations.UpdateDate(context.Background(), reservation.ID, moved)
	if err != nil {
		t.Fatalf("UpdateDate failed: %v", err)
	}
	if !updated.Date.Equal(model.Date(moved)) {
		t.Errorf("reservation date = %v, want %v", updated.Date, model.Date(moved))
	}
}

func TestUpdateReservationNotFound(t *testing.T) {
	_, reservations, _ := newReservationFixture(t)

	moved := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	_, err := reservations.Update(context.Background(), "missing", UpdateReservationInput{Date: &moved})
	if !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestConvertToLoan(t *testing.T) {
	store, reservations, _ := newReservationFixture(t)
	book := store.addBook("Conversion Ready")
	store.addCopy(book.ID)
	user := store.addUser("ready@example.com")
	reservation := store.addReservation(book.ID, user.ID, time.Now())

	loan, err := reservations.ConvertToLoan(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("ConvertToLoan failed: %v", err)
	}
	if loan.UserID != user.ID {
		t.Errorf("loan user = %s, want %s", loan.UserID, user.ID)
	}

	if _, err := reservations.Get(context.Background(), reservation.ID); !errors.Is(err, ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound after conversion, got %v", err)
	}
}

func TestCancelReservation(t *testing.T) {
	store, reservations, sink := newReservationFixture(t)
	book := store.addBook("Changed Mind")
	copy := store.addCopy(book.ID)
	user := store.addUser("fickle@example.com")
	reservation := store.addReservation(book.ID, user.ID, time.Now())

	if err := reservations.Cancel(context.Background(), reservation.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if _, err := reservations.Get(context.Background(), reservation.ID); !errors.Is(err, ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound after cancel, got %v", err)
	}

	// Cancelling never touches copies or loans.
	stored, _ := store.GetCopyByID(context.Background(), copy.ID)
	if !stored.Available {
		t.Error("cancel must not claim any copy")
	}

	if events := sink.byType(model.EventReservationCancelled); len(events) != 1 {
		t.Errorf("expected 1 reservation.cancelled event, got %d", len(events))
	}
}

func TestCancelUnknownReservation(t *testing.T) {
	_, reservations, _ := newReservationFixture(t)

	err := reservations.Cancel(context.Background(), "missing")
	if !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}
