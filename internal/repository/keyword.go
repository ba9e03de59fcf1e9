package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shelfwise/shelfwise/internal/model"
)

// Common errors for keyword repository operations.
var (
	ErrKeywordNotFound = errors.New("keyword not found")
)

// CreateKeyword inserts a new keyword into the database.
func (r *Repository) CreateKeyword(ctx context.Context, keyword *model.Keyword) error {
	query := `
		INSERT INTO keywords (id, book_id, keyword, keyword_group, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		keyword.ID,
		keyword.BookID,
		keyword.Keyword,
		nullableString(keyword.Group),
		keyword.CreatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to create keyword: %w", err)
	}

	return nil
}

// GetKeywordByID retrieves a keyword by its ID.
func (r *Repository) GetKeywordByID(ctx context.Context, id string) (*model.Keyword, error) {
	query := `
		SELECT id, book_id, keyword, COALESCE(keyword_group, ''), created_at
		FROM keywords
		WHERE id = $1
	`

	keyword, err := scanKeyword(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeywordNotFound
		}
		return nil, fmt.Errorf("failed to get keyword by ID: %w", err)
	}

	return keyword, nil
}

// ListKeywords retrieves all keywords.
func (r *Repository) ListKeywords(ctx context.Context) ([]*model.Keyword, error) {
	query := `
		SELECT id, book_id, keyword, COALESCE(keyword_group, ''), created_at
		FROM keywords
		ORDER BY keyword, id
	`

	return r.queryKeywords(ctx, query)
}

// ListKeywordsByBook retrieves all keywords tagging a book.
func (r *Repository) ListKeywordsByBook(ctx context.Context, bookID string) ([]*model.Keyword, error) {
	query := `
		SELECT id, book_id, keyword, COALESCE(keyword_group, ''), created_at
		FROM keywords
		WHERE book_id = $1
		ORDER BY keyword, id
	`

	return r.queryKeywords(ctx, query, bookID)
}

// UpdateKeyword updates a keyword's mutable fields.
func (r *Repository) UpdateKeyword(ctx context.Context, keyword *model.Keyword) error {
	query := `
		UPDATE keywords
		SET keyword = $2, keyword_group = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		keyword.ID,
		keyword.Keyword,
		nullableString(keyword.Group),
	)

	if err != nil {
		return fmt.Errorf("failed to update keyword: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrKeywordNotFound
	}

	return nil
}

// DeleteKeyword removes a keyword.
func (r *Repository) DeleteKeyword(ctx context.Context, id string) error {
	query := `DELETE FROM keywords WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrKeywordNotFound
	}

	return nil
}

func (r *Repository) queryKeywords(ctx context.Context, query string, args ...any) ([]*model.Keyword, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer rows.Close()

	var keywords []*model.Keyword
	for rows.Next() {
		keyword, err := scanKeyword(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, keyword)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keywords: %w", err)
	}

	return keywords, nil
}

// scanKeyword scans a single row into a Keyword model.
func scanKeyword(row pgx.Row) (*model.Keyword, error) {
	var keyword model.Keyword
	err := row.Scan(
		&keyword.ID,
		&keyword.BookID,
		&keyword.Keyword,
		&keyword.Group,
		&keyword.CreatedAt,
	)
	return &keyword, err
}
