package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newLoanFixture(t *testing.T) (*memStore, *LoanService, *captureSink) {
	t.Helper()
	store := newMemStore()
	sink := &captureSink{}
	allocator := NewAllocator(store, sink, nil)
	loans := NewLoanService(store, allocator, sink, nil)
	return store, loans, sink
}

func TestCreateLoanClaimsCopy(t *testing.T) {
	store, loans, sink := newLoanFixture(t)
	book := store.addBook("Direct Checkout")
	copy := store.addCopy(book.ID)
	user := store.addUser("borrower@example.com")

	loan, err := loans.Create(context.Background(), CreateLoanInput{
		UserID: user.ID,
		CopyID: copy.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if loan.ID == "" {
		t.Error("loan should have an ID")
	}
	if !loan.Open() {
		t.Error("new loan should be open")
	}

	stored, _ := store.GetCopyByID(context.Background(), copy.ID)
	if stored.Available {
		t.Error("copy should be claimed by the new loan")
	}

	if events := sink.byType(model.EventLoanCreated); len(events) != 1 {
		t.Errorf("expected 1 loan.created event, got %d", len(events))
	}
}

func TestCreateLoanCopyAlreadyLoaned(t *testing.T) {
	store, loans, _ := newLoanFixture(t)
	book := store.addBook("Popular Title")
	copy := store.addCopy(book.ID)
	first := store.addUser("first@example.com")
	second := store.addUser("second@example.com")

	if _, err := loans.Create(context.Background(), CreateLoanInput{UserID: first.ID, CopyID: copy.ID}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := loans.Create(context.Background(), CreateLoanInput{UserID: second.ID, CopyID: copy.ID})
	if !errors.Is(err, ErrCopyAlreadyLoaned) {
		t.Fatalf("expected ErrCopyAlreadyLoaned, got %v", err)
	}
}

func TestCreateLoanReferentialChecks(t *testing.T) {
	store, loans, _ := newLoanFixture(t)
	book := store.addBook("Reference Checks")
	copy := store.addCopy(book.ID)
	user := store.addUser("checked@example.com")

	tests := []struct {
		name    string
		input   CreateLoanInput
		wantErr error
	}{
		{"unknown_user", CreateLoanInput{UserID: "nobody", CopyID: copy.ID}, ErrUserNotFound},
		{"unknown_copy", CreateLoanInput{UserID: user.ID, CopyID: "nothing"}, ErrCopyNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := loans.Create(context.Background(), test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestConvertReservationUsesCurrentDate(t *testing.T) {
	store, loans, sink := newLoanFixture(t)
	book := store.addBook("Reserved Ahead")
	store.addCopy(book.ID)
	user := store.addUser("patient@example.com")

	// Reserved a month ago; the loan must start today, not then.
	reservedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	processedAt := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	reservation := store.addReservation(book.ID, user.ID, reservedAt)
	loans.now = fixedClock(processedAt)

	loan, err := loans.CreateFromReservation(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("CreateFromReservation failed: %v", err)
	}

	want := model.Date(processedAt)
	if !loan.StartDate.Equal(want) {
		t.Errorf("loan start date = %v, want processing date %v", loan.StartDate, want)
	}
	if loan.ReservationID == nil || *loan.ReservationID != reservation.ID {
		t.Error("loan should reference its originating reservation")
	}

	// The reservation is consumed by the conversion.
	if _, err := store.GetReservationByID(context.Background(), reservation.ID); err == nil {
		t.Error("reservation should be deleted after conversion")
	}

	if events := sink.byType(model.EventReservationConverted); len(events) != 1 {
		t.Errorf("expected 1 reservation.converted event, got %d", len(events))
	}
}

func TestConvertReservationNoCopyLeavesReservation(t *testing.T) {
	store, loans, _ := newLoanFixture(t)
	book := store.addBook("All Checked Out")
	user := store.addUser("unlucky@example.com")
	reservation := store.addReservation(book.ID, user.ID, time.Now())

	_, err := loans.CreateFromReservation(context.Background(), reservation.ID)
	if !errors.Is(err, ErrNoCopyAvailable) {
		t.Fatalf("expected ErrNoCopyAvailable, got %v", err)
	}

	// Failed conversion must not consume the reservation.
	if _, err := store.GetReservationByID(context.Background(), reservation.ID); err != nil {
		t.Errorf("reservation should survive a failed conversion: %v", err)
	}
}

func TestConvertReservationRollbackReleasesCopy(t *testing.T) {
	store, loans, _ := newLoanFixture(t)
	book := store.addBook("Flaky Storage")
	copy := store.addCopy(book.ID)
	user := store.addUser("rollback@example.com")
	reservation := store.addReservation(book.ID, user.ID, time.Now())

	store.convertErr = errors.New("connection reset")

	_, err := loans.CreateFromReservation(context.Background(), reservation.ID)
	if err == nil {
		t.Fatal("expected conversion to fail")
	}

	// The compensating release must undo the claim.
	stored, _ := store.GetCopyByID(context.Background(), copy.ID)
	if !stored.Available {
		t.Error("copy should be released after a failed conversion")
	}
	if _, err := store.GetReservationByID(context.Background(), reservation.ID); err != nil {
		t.Errorf("reservation should survive a failed conversion: %v", err)
	}
}

func TestCloseLoanFreesCopy(t *testing.T) {
	store, loans, sink := newLoanFixture(t)
	book := store.addBook("Returned on Time")
	copy := store.addCopy(book.ID)
	user := store.addUser("prompt@example.com")

	loan, err := loans.Create(context.Background(), CreateLoanInput{UserID: user.ID, CopyID: copy.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	closed, err := loans.Close(context.Background(), loan.ID, time.Now().Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if closed.Open() {
		t.Error("closed loan should not be open")
	}

	stored, _ := store.GetCopyByID(context.Background(), copy.ID)
	if !stored.Available {
		t.Error("copy should be available after the loan closes")
	}

	if events := sink.byType(model.EventLoanClosed); len(events) != 1 {
		t.Errorf("expected 1 loan.closed event, got %d", len(events))
	}
}

func TestClosedLoanIsTerminal(t *testing.T) {
	store, loans, sink := newLoanFixture(t)
	book := store.addBook("Returned Once")
	copy := store.addCopy(book.ID)
	user := store.addUser("done@example.com")

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	loan, err := loans.Create(context.Background(), CreateLoanInput{
		UserID:    user.ID,
		CopyID:    copy.ID,
		StartDate: start,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	returned := start.AddDate(0, 0, 7)
	closed, err := loans.Close(context.Background(), loan.ID, returned)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A second close must be rejected and leave the end date alone.
	if _, err := loans.Close(context.Background(), loan.ID, returned.AddDate(0, 0, 5)); !errors.Is(err, ErrLoanClosed) {
		t.Fatalf("expected ErrLoanClosed, got %v", err)
	}

	stored, err := loans.Get(context.Background(), loan.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.EndDate == nil || !stored.EndDate.Equal(*closed.EndDate) {
		t.Errorf("end date = %v, want %v", stored.EndDate, closed.EndDate)
	}
	if events := sink.byType(model.EventLoanClosed); len(events) != 1 {
		t.Errorf("expected 1 loan.closed event, got %d", len(events))
	}

	// Correcting the start date of a closed loan is still allowed.
	earlier := start.AddDate(0, 0, -2)
	corrected, err := loans.UpdateDates(context.Background(), loan.ID, &earlier, nil)
	if err != nil {
		t.Fatalf("UpdateDates failed: %v", err)
	}
	if !corrected.StartDate.Equal(model.Date(earlier)) {
		t.Errorf("start date = %v, want %v", corrected.StartDate, model.Date(earlier))
	}
}

func TestUpdateDatesRejectsInvertedRange(t *testing.T) {
	store, loans, _ := newLoanFixture(t)
	book := store.addBook("Time Travel")
	copy := store.addCopy(book.ID)
	user := store.addUser("backwards@example.com")

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	loan, err := loans.Create(context.Background(), CreateLoanInput{
		UserID:    user.ID,
		CopyID:    copy.ID,
		StartDate: start,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	before := start.AddDate(0, 0, -3)
	_, err = loans.Close(context.Background(), loan.ID, before)
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}

	// The rejected close must not free the copy.
	stored, _ := store.GetCopyByID(context.Background(), copy.ID)
	if stored.Available {
		t.Error("copy should stay claimed after a rejected close")
	}
}

func TestDeleteOpenLoanFreesCopy(t *testing.T) {
	store, loans, sink := newLoanFixture(t)
	book := store.addBook("Mistaken Entry")
	copy := store.addCopy(book.ID)
	user := store.addUser("oops@example.com")

	loan, err := loans.Create(context.Background(), CreateLoanInput{UserID: user.ID, CopyID: copy.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := loans.Delete(context.Background(), loan.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	stored, _ := store.GetCopyByID(context.Background(), copy.ID)
	if !stored.Available {
		t.Error("copy should be released when its open loan is deleted")
	}
	if _, err := loans.Get(context.Background(), loan.ID); !errors.Is(err, ErrLoanNotFound) {
		t.Errorf("expected ErrLoanNotFound after delete, got %v", err)
	}

	if events := sink.byType(model.EventLoanDeleted); len(events) != 1 {
		t.Errorf("expected 1 loan.deleted event, got %d", len(events))
	}
}
