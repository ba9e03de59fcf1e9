package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shelfwise/shelfwise/internal/metrics"
	"github.com/shelfwise/shelfwise/internal/model"
)

func TestAllocateClaimsCopy(t *testing.T) {
	store := newMemStore()
	book := store.addBook("The Go Programming Language")
	copy := store.addCopy(book.ID)
	user := store.addUser("reader@example.com")

	recorder := metrics.NewInMemory()
	allocator := NewAllocator(store, nil, recorder)

	got, err := allocator.Allocate(context.Background(), book.ID, user.ID)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if got.ID != copy.ID {
		t.Errorf("expected copy %s, got %s", copy.ID, got.ID)
	}
	if got.Available {
		t.Error("allocated copy should be unavailable")
	}
	if got.HeldByUserID == nil || *got.HeldByUserID != user.ID {
		t.Error("allocated copy should be held by the requesting user")
	}

	stored, _ := store.GetCopyByID(context.Background(), copy.ID)
	if stored.Available {
		t.Error("stored copy should be unavailable after allocation")
	}
	if recorder.Snapshot().CopiesAllocated != 1 {
		t.Error("expected one allocation recorded")
	}
}

func TestAllocateUnknownBook(t *testing.T) {
	allocator := NewAllocator(newMemStore(), nil, nil)

	_, err := allocator.Allocate(context.Background(), "missing", "")
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestAllocateNoCopies(t *testing.T) {
	store := newMemStore()
	book := store.addBook("Out of Stock")

	sink := &captureSink{}
	recorder := metrics.NewInMemory()
	allocator := NewAllocator(store, sink, recorder)

	_, err := allocator.Allocate(context.Background(), book.ID, "user-1")
	if !errors.Is(err, ErrNoCopyAvailable) {
		t.Fatalf("expected ErrNoCopyAvailable, got %v", err)
	}

	failed := sink.byType(model.EventAllocationFailed)
	if len(failed) != 1 {
		t.Fatalf("expected 1 allocation.failed event, got %d", len(failed))
	}
	if failed[0].BookID != book.ID {
		t.Errorf("event book ID = %s, want %s", failed[0].BookID, book.ID)
	}
	if recorder.Snapshot().AllocationsFailed != 1 {
		t.Error("expected one failed allocation recorded")
	}
}

func TestAllocateSequentialExhaustion(t *testing.T) {
	store := newMemStore()
	book := store.addBook("Two Copies Only")
	store.addCopy(book.ID)
	store.addCopy(book.ID)

	allocator := NewAllocator(store, nil, nil)

	first, err := allocator.Allocate(context.Background(), book.ID, "user-1")
	if err != nil {
		t.Fatalf("first Allocate failed: %v", err)
	}
	second, err := allocator.Allocate(context.Background(), book.ID, "user-2")
	if err != nil {
		t.Fatalf("second Allocate failed: %v", err)
	}
	if first.ID == second.ID {
		t.Errorf("both allocations claimed copy %s", first.ID)
	}

	if _, err := allocator.Allocate(context.Background(), book.ID, "user-3"); !errors.Is(err, ErrNoCopyAvailable) {
		t.Fatalf("expected ErrNoCopyAvailable once both copies are out, got %v", err)
	}
}

func TestAllocateConcurrentSingleCopy(t *testing.T) {
	store := newMemStore()
	book := store.addBook("Contended Title")
	store.addCopy(book.ID)

	allocator := NewAllocator(store, nil, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := allocator.Allocate(context.Background(), book.ID, "user-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, exhausted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrNoCopyAvailable):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("exactly one caller should win the copy, got %d", succeeded)
	}
	if exhausted != callers-1 {
		t.Errorf("expected %d exhausted callers, got %d", callers-1, exhausted)
	}
}

func TestAllocateRetriesAfterLostRace(t *testing.T) {
	store := newMemStore()
	book := store.addBook("Race Conditions in Practice")
	store.addCopy(book.ID)
	store.addCopy(book.ID)

	// Steal the first pick between the snapshot and the claim. Only
	// once, so the retry on the remaining candidate succeeds.
	var stole bool
	store.claimHook = func(copyID string) {
		store.mu.Lock()
		defer store.mu.Unlock()
		if !stole {
			stole = true
			store.claimLocked(copyID, "competitor")
		}
	}

	allocator := NewAllocator(store, nil, nil)

	got, err := allocator.Allocate(context.Background(), book.ID, "user-1")
	if err != nil {
		t.Fatalf("Allocate should have retried the remaining copy: %v", err)
	}
	if got.HeldByUserID == nil || *got.HeldByUserID != "user-1" {
		t.Error("winning claim should belong to the caller, not the competitor")
	}
}

func TestRandomIndexBounds(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for i := 0; i < 50; i++ {
			if got := randomIndex(n); got < 0 || got >= n {
				t.Fatalf("randomIndex(%d) = %d, out of range", n, got)
			}
		}
	}
}
