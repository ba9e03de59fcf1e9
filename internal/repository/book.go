package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shelfwise/shelfwise/internal/model"
)

// Common errors for book repository operations.
var (
	ErrBookNotFound  = errors.New("book not found")
	ErrBookOnLoan    = errors.New("book has open loans")
	ErrISBNExists    = errors.New("isbn already exists")
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// PaginationCursor represents decoded cursor for pagination.
type PaginationCursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBook inserts a new book into the database.
func (r *Repository) CreateBook(ctx context.Context, book *model.Book) error {
	query := `
		INSERT INTO books (id, isbn, title, author, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		book.ID,
		book.ISBN,
		book.Title,
		book.Author,
		book.CreatedAt,
		book.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrISBNExists
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	query := `
		SELECT id, isbn, title, author, created_at, updated_at
		FROM books
		WHERE id = $1
	`

	book, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book by ID: %w", err)
	}

	return book, nil
}

// ListBooks retrieves a paginated list of books ordered newest first.
func (r *Repository) ListBooks(ctx context.Context, cursor string, limit int) ([]*model.Book, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `
		SELECT id, isbn, title, author, created_at, updated_at
		FROM books
	`
	args := []any{}
	argIndex := 1

	if cursorData != nil {
		query += fmt.Sprintf(" WHERE (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating books: %w", err)
	}

	var nextCursor string
	if len(books) > limit {
		books = books[:limit] // Remove extra row
		last := books[len(books)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt,
		})
	}

	return books, nextCursor, nil
}

// SearchBooksByKeyword retrieves books tagged with a matching keyword.
func (r *Repository) SearchBooksByKeyword(ctx context.Context, keyword string) ([]*model.Book, error) {
	query := `
		SELECT DISTINCT b.id, b.isbn, b.title, b.author, b.created_at, b.updated_at
		FROM books b
		JOIN keywords k ON k.book_id = b.id
		WHERE LOWER(k.keyword) = LOWER($1)
		ORDER BY b.title
	`

	rows, err := r.pool.Query(ctx, query, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to search books by keyword: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

// UpdateBook updates a book's mutable fields.
func (r *Repository) UpdateBook(ctx context.Context, book *model.Book) error {
	query := `
		UPDATE books
		SET isbn = $2, title = $3, author = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		book.ID,
		book.ISBN,
		book.Title,
		book.Author,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrISBNExists
		}
		return fmt.Errorf("failed to update book: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrBookNotFound
	}

	return nil
}

// DeleteBook removes a book. Its copies and keywords go with it via
// ON DELETE CASCADE, mirroring the catalog's orphan-removal rule.
// Closed-loan history of the copies is removed explicitly in the same
// transaction; an open loan against any copy rejects the delete with
// ErrBookOnLoan.
func (r *Repository) DeleteBook(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		// Lock the copies so no loan can be opened against them while
		// the delete is in flight.
		if _, err := tx.Exec(ctx, `SELECT FROM copies WHERE book_id = $1 FOR UPDATE`, id); err != nil {
			return fmt.Errorf("failed to lock copies: %w", err)
		}

		var open bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1
				FROM loans l
				JOIN copies c ON c.id = l.copy_id
				WHERE c.book_id = $1 AND l.end_date IS NULL
			)
		`, id).Scan(&open)
		if err != nil {
			return fmt.Errorf("failed to check open loans: %w", err)
		}
		if open {
			return ErrBookOnLoan
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM loans
			USING copies
			WHERE loans.copy_id = copies.id AND copies.book_id = $1
		`, id)
		if err != nil {
			return fmt.Errorf("failed to delete loan history: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete book: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrBookNotFound
		}
		return nil
	})
}

// scanBook scans a single row into a Book model.
func scanBook(row pgx.Row) (*model.Book, error) {
	var book model.Book
	err := row.Scan(
		&book.ID,
		&book.ISBN,
		&book.Title,
		&book.Author,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	return &book, err
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	return err != nil && (contains(err.Error(), "23505") || contains(err.Error(), "unique"))
}

// contains checks if a string contains a substring.
func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchString(s, substr)
}

// searchString is a simple string search.
func searchString(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// encodeCursor encodes pagination cursor to base64.
func encodeCursor(cursor *PaginationCursor) string {
	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor decodes base64 pagination cursor.
func decodeCursor(s string) (*PaginationCursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	var cursor PaginationCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}
