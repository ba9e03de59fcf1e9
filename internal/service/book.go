package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/metrics"
	"github.com/shelfwise/shelfwise/internal/model"
	"github.com/shelfwise/shelfwise/internal/repository"
)

// Catalog validation errors.
var (
	ErrInvalidISBN    = errors.New("invalid ISBN format")
	ErrTitleMissing   = errors.New("title is required")
	ErrKeywordMissing = errors.New("keyword is required")
)

// ISBN validation: 10 or 13 digits, an X check digit allowed in the
// last position of ISBN-10, optional hyphens.
var isbnRegex = regexp.MustCompile(`^(?:\d{9}[\dX]|\d{13})$`)

// BookService handles the catalog: books and their keywords. Book
// metadata reads go through the Redis cache; availability is never
// cached and always projected from copy state.
type BookService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	metrics metrics.Recorder
}

// NewBookService creates a new BookService. The cache is optional; a
// nil cache disables the read-through path.
func NewBookService(repo *repository.Repository, cache *cache.Cache, recorder metrics.Recorder) *BookService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &BookService{
		repo:    repo,
		cache:   cache,
		metrics: recorder,
	}
}

// CreateBookInput defines input for creating a book.
type CreateBookInput struct {
	ISBN   string
	Title  string
	Author string
}

// Create adds a book to the catalog.
func (s *BookService) Create(ctx context.Context, input CreateBookInput) (*model.Book, error) {
	isbn, err := normalizeISBN(input.ISBN)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleMissing
	}

	now := time.Now().UTC()
	book := &model.Book{
		ID:        ulid.Make().String(),
		ISBN:      isbn,
		Title:     strings.TrimSpace(input.Title),
		Author:    strings.TrimSpace(input.Author),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateBook(ctx, book); err != nil {
		return nil, mapStoreError(err)
	}

	return book, nil
}

// Get retrieves a book by ID, preferring the cache.
func (s *BookService) Get(ctx context.Context, id string) (*model.Book, error) {
	if s.cache != nil {
		if negative, err := s.cache.IsNegativelyCached(ctx, id); err == nil && negative {
			s.metrics.IncBookCacheHit()
			return nil, ErrBookNotFound
		}

		cached, err := s.cache.GetBook(ctx, id)
		if err == nil {
			s.metrics.IncBookCacheHit()
			return cached.ToBook(id), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("book cache read failed", "book_id", id, "error", err)
		}
		s.metrics.IncBookCacheMiss()
	}

	book, err := s.repo.GetBookByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) && s.cache != nil {
			if cacheErr := s.cache.SetNegativeCache(ctx, id); cacheErr != nil {
				slog.Warn("negative cache write failed", "book_id", id, "error", cacheErr)
			}
		}
		return nil, mapStoreError(err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetBook(ctx, book); cacheErr != nil {
			slog.Warn("book cache write failed", "book_id", id, "error", cacheErr)
		}
	}

	return book, nil
}

// List retrieves a page of books ordered by creation time.
func (s *BookService) List(ctx context.Context, cursor string, limit int) ([]*model.Book, string, error) {
	books, next, err := s.repo.ListBooks(ctx, cursor, limit)
	if err != nil {
		return nil, "", mapStoreError(err)
	}
	return books, next, nil
}

// Search retrieves books matching a keyword, case-insensitively.
func (s *BookService) Search(ctx context.Context, keyword string) ([]*model.Book, error) {
	return s.repo.SearchBooksByKeyword(ctx, strings.TrimSpace(keyword))
}

// UpdateBookInput defines input for updating a book. Empty fields keep
// their current value.
type UpdateBookInput struct {
	ISBN   string
	Title  string
	Author string
}

// Update modifies a book's metadata and invalidates its cache entry.
func (s *BookService) Update(ctx context.Context, id string, input UpdateBookInput) (*model.Book, error) {
	book, err := s.repo.GetBookByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if input.ISBN != "" {
		isbn, err := normalizeISBN(input.ISBN)
		if err != nil {
			return nil, err
		}
		book.ISBN = isbn
	}
	if input.Title != "" {
		book.Title = strings.TrimSpace(input.Title)
	}
	if input.Author != "" {
		book.Author = strings.TrimSpace(input.Author)
	}
	book.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateBook(ctx, book); err != nil {
		return nil, mapStoreError(err)
	}

	s.invalidate(ctx, id)
	return book, nil
}

// Delete removes a book. Its copies and their closed-loan history go
// with it; a copy out on an open loan blocks the delete.
func (s *BookService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return mapStoreError(err)
	}

	s.invalidate(ctx, id)
	return nil
}

// AddKeywordInput defines input for attaching a keyword to a book.
type AddKeywordInput struct {
	BookID  string
	Keyword string
	Group   string
}

// AddKeyword attaches a search keyword to a book.
func (s *BookService) AddKeyword(ctx context.Context, input AddKeywordInput) (*model.Keyword, error) {
	word := strings.TrimSpace(input.Keyword)
	if word == "" {
		return nil, ErrKeywordMissing
	}

	if _, err := s.repo.GetBookByID(ctx, input.BookID); err != nil {
		return nil, mapStoreError(err)
	}

	keyword := &model.Keyword{
		ID:        ulid.Make().String(),
		BookID:    input.BookID,
		Keyword:   word,
		Group:     strings.TrimSpace(input.Group),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateKeyword(ctx, keyword); err != nil {
		return nil, mapStoreError(err)
	}
	return keyword, nil
}

// ListKeywords retrieves the keywords attached to a book.
func (s *BookService) ListKeywords(ctx context.Context, bookID string) ([]*model.Keyword, error) {
	if _, err := s.repo.GetBookByID(ctx, bookID); err != nil {
		return nil, mapStoreError(err)
	}
	return s.repo.ListKeywordsByBook(ctx, bookID)
}

// UpdateKeyword changes a keyword's text or group.
func (s *BookService) UpdateKeyword(ctx context.Context, id, word, group string) (*model.Keyword, error) {
	keyword, err := s.repo.GetKeywordByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if w := strings.TrimSpace(word); w != "" {
		keyword.Keyword = w
	}
	keyword.Group = strings.TrimSpace(group)

	if err := s.repo.UpdateKeyword(ctx, keyword); err != nil {
		return nil, mapStoreError(err)
	}
	return keyword, nil
}

// RemoveKeyword detaches a keyword from its book.
func (s *BookService) RemoveKeyword(ctx context.Context, id string) error {
	return mapStoreError(s.repo.DeleteKeyword(ctx, id))
}

// invalidate drops a book's cache entries. Failures are logged, never
// surfaced; the entry expires by TTL anyway.
func (s *BookService) invalidate(ctx context.Context, bookID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteBook(ctx, bookID); err != nil {
		slog.Warn("book cache invalidation failed", "book_id", bookID, "error", err)
	}
}

// normalizeISBN strips hyphens and spaces and validates the result.
func normalizeISBN(isbn string) (string, error) {
	normalized := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(isbn))
	if !isbnRegex.MatchString(normalized) {
		return "", ErrInvalidISBN
	}
	return normalized, nil
}
