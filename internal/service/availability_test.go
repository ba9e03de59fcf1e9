package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCopiesAvailable(t *testing.T) {
	store := newMemStore()
	book := store.addBook("Stocked Title")
	store.addCopy(book.ID)
	store.addCopy(book.ID)
	claimed := store.addCopy(book.ID)
	user := store.addUser("counter@example.com")

	availability := NewAvailabilityService(store)

	if _, err := store.ClaimCopy(context.Background(), claimed.ID, user.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	n, err := availability.CopiesAvailable(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("CopiesAvailable failed: %v", err)
	}
	if n != 2 {
		t.Errorf("available copies = %d, want 2", n)
	}
}

func TestBookAvailableReflectsLoanLifecycle(t *testing.T) {
	store := newMemStore()
	book := store.addBook("Single Copy")
	copy := store.addCopy(book.ID)
	user := store.addUser("cycle@example.com")

	availability := NewAvailabilityService(store)
	loans := NewLoanService(store, NewAllocator(store, nil, nil), nil, nil)

	assertAvailable := func(want bool) {
		t.Helper()
		got, err := availability.BookAvailable(context.Background(), book.ID)
		if err != nil {
			t.Fatalf("BookAvailable failed: %v", err)
		}
		if got != want {
			t.Errorf("BookAvailable = %v, want %v", got, want)
		}
	}

	assertAvailable(true)

	loan, err := loans.Create(context.Background(), CreateLoanInput{UserID: user.ID, CopyID: copy.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	assertAvailable(false)

	if _, err := loans.Close(context.Background(), loan.ID, time.Now()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	assertAvailable(true)
}

func TestCopyAvailable(t *testing.T) {
	store := newMemStore()
	book := store.addBook("Inspected Copy")
	copy := store.addCopy(book.ID)

	availability := NewAvailabilityService(store)

	got, err := availability.CopyAvailable(context.Background(), copy.ID)
	if err != nil {
		t.Fatalf("CopyAvailable failed: %v", err)
	}
	if !got {
		t.Error("fresh copy should be available")
	}

	if _, err := availability.CopyAvailable(context.Background(), "missing"); !errors.Is(err, ErrCopyNotFound) {
		t.Fatalf("expected ErrCopyNotFound, got %v", err)
	}
}

func TestCopiesAvailableUnknownBook(t *testing.T) {
	availability := NewAvailabilityService(newMemStore())

	_, err := availability.CopiesAvailable(context.Background(), "missing")
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}
