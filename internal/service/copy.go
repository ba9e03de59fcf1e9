package service

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfwise/shelfwise/internal/model"
	"github.com/shelfwise/shelfwise/internal/repository"
)

// CopyService handles physical copy inventory. Copies enter the
// collection available; their availability afterwards is driven only by
// the loan lifecycle, never set directly through this service.
type CopyService struct {
	repo *repository.Repository
}

// NewCopyService creates a new CopyService.
func NewCopyService(repo *repository.Repository) *CopyService {
	return &CopyService{repo: repo}
}

// Create registers a new copy of a book. New copies start available.
func (s *CopyService) Create(ctx context.Context, bookID string) (*model.Copy, error) {
	if _, err := s.repo.GetBookByID(ctx, bookID); err != nil {
		return nil, mapStoreError(err)
	}

	now := time.Now().UTC()
	copy := &model.Copy{
		ID:        ulid.Make().String(),
		BookID:    bookID,
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateCopy(ctx, copy); err != nil {
		return nil, mapStoreError(err)
	}
	return copy, nil
}

// Get retrieves a copy by ID.
func (s *CopyService) Get(ctx context.Context, id string) (*model.Copy, error) {
	copy, err := s.repo.GetCopyByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return copy, nil
}

// ListByBook retrieves all copies of a book.
func (s *CopyService) ListByBook(ctx context.Context, bookID string) ([]*model.Copy, error) {
	if _, err := s.repo.GetBookByID(ctx, bookID); err != nil {
		return nil, mapStoreError(err)
	}
	return s.repo.ListCopiesByBook(ctx, bookID)
}

// Reassign moves a copy to a different book. Rejected while the copy is
// out on loan.
func (s *CopyService) Reassign(ctx context.Context, id, bookID string) (*model.Copy, error) {
	copy, err := s.repo.GetCopyByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !copy.Available {
		return nil, ErrCopyNotAvailable
	}

	copy.BookID = bookID
	copy.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCopy(ctx, copy); err != nil {
		return nil, mapStoreError(err)
	}
	return copy, nil
}

// Delete removes a copy from the collection. A copy attached to an open
// loan cannot be removed; the repository checks and deletes in one
// transaction.
func (s *CopyService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCopy(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCopyAlreadyLoaned) {
			return ErrCopyNotAvailable
		}
		return mapStoreError(err)
	}
	return nil
}
