package service

import (
	"context"
)

// AvailabilityService projects current availability from copy state.
// Availability is derived, never stored per book: a book is available
// when at least one of its copies is.
type AvailabilityService struct {
	store AvailabilityStore
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(store AvailabilityStore) *AvailabilityService {
	return &AvailabilityService{store: store}
}

// CopiesAvailable returns the number of free copies of a book.
func (s *AvailabilityService) CopiesAvailable(ctx context.Context, bookID string) (int, error) {
	if _, err := s.store.GetBookByID(ctx, bookID); err != nil {
		return 0, mapStoreError(err)
	}

	n, err := s.store.CountAvailableCopies(ctx, bookID)
	if err != nil {
		return 0, mapStoreError(err)
	}
	return n, nil
}

// BookAvailable reports whether any copy of the book is free.
func (s *AvailabilityService) BookAvailable(ctx context.Context, bookID string) (bool, error) {
	n, err := s.CopiesAvailable(ctx, bookID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CopyAvailable reports whether a specific copy is free.
func (s *AvailabilityService) CopyAvailable(ctx context.Context, copyID string) (bool, error) {
	copy, err := s.store.GetCopyByID(ctx, copyID)
	if err != nil {
		return false, mapStoreError(err)
	}
	return copy.Available, nil
}
