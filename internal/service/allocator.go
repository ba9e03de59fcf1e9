package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/shelfwise/shelfwise/internal/metrics"
	"github.com/shelfwise/shelfwise/internal/model"
)

// Allocator selects an available copy of a book and atomically marks it
// unavailable. Selection is uniform random over the candidate set; no
// ordering is promised to callers.
type Allocator struct {
	store   AllocatorStore
	events  EventSink
	metrics metrics.Recorder
}

// NewAllocator creates a new Allocator.
func NewAllocator(store AllocatorStore, events EventSink, recorder metrics.Recorder) *Allocator {
	if events == nil {
		events = noopSink{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Allocator{
		store:   store,
		events:  events,
		metrics: recorder,
	}
}

// Allocate claims one available copy of the book for heldBy and returns
// it. Exactly one copy's availability flips per successful call.
//
// The candidate list is a snapshot; the conditional claim is the
// serialization point. A caller that loses the race on its pick retries
// the remaining candidates and fails with ErrNoCopyAvailable only when
// every candidate has been claimed by someone else.
func (a *Allocator) Allocate(ctx context.Context, bookID string, heldBy string) (*model.Copy, error) {
	if _, err := a.store.GetBookByID(ctx, bookID); err != nil {
		return nil, mapStoreError(err)
	}

	candidates, err := a.store.AvailableCopies(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available copies: %w", err)
	}

	for len(candidates) > 0 {
		i := randomIndex(len(candidates))
		candidate := candidates[i]

		claimed, err := a.store.ClaimCopy(ctx, candidate.ID, heldBy)
		if err != nil {
			return nil, fmt.Errorf("failed to claim copy: %w", err)
		}
		if claimed {
			candidate.Available = false
			if heldBy != "" {
				candidate.HeldByUserID = &heldBy
			}
			a.metrics.IncCopyAllocated()
			return candidate, nil
		}

		// Lost the race on this copy; drop it and try another.
		candidates = append(candidates[:i], candidates[i+1:]...)
	}

	a.metrics.IncAllocationFailed()
	a.events.Record(model.CirculationEvent{
		Type:       model.EventAllocationFailed,
		BookID:     bookID,
		UserID:     heldBy,
		OccurredAt: time.Now().UTC(),
	})

	return nil, fmt.Errorf("%w: book %s", ErrNoCopyAvailable, bookID)
}

// randomIndex returns a cryptographically random integer in [0, n).
func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// Fallback (should never happen in practice)
		return 0
	}
	return int(v.Int64())
}
