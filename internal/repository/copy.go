package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shelfwise/shelfwise/internal/model"
)

// Common errors for copy repository operations.
var (
	ErrCopyNotFound = errors.New("copy not found")
)

// CreateCopy inserts a new copy into the database.
func (r *Repository) CreateCopy(ctx context.Context, copy *model.Copy) error {
	query := `
		INSERT INTO copies (id, book_id, available, held_by_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		copy.ID,
		copy.BookID,
		copy.Available,
		copy.HeldByUserID,
		copy.CreatedAt,
		copy.UpdatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to create copy: %w", err)
	}

	return nil
}

// GetCopyByID retrieves a copy by its ID.
func (r *Repository) GetCopyByID(ctx context.Context, id string) (*model.Copy, error) {
	query := `
		SELECT id, book_id, available, held_by_user_id, created_at, updated_at
		FROM copies
		WHERE id = $1
	`

	copy, err := scanCopy(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCopyNotFound
		}
		return nil, fmt.Errorf("failed to get copy by ID: %w", err)
	}

	return copy, nil
}

// ListCopiesByBook retrieves all copies belonging to a book.
func (r *Repository) ListCopiesByBook(ctx context.Context, bookID string) ([]*model.Copy, error) {
	query := `
		SELECT id, book_id, available, held_by_user_id, created_at, updated_at
		FROM copies
		WHERE book_id = $1
		ORDER BY created_at, id
	`

	return r.queryCopies(ctx, query, bookID)
}

// AvailableCopies retrieves the copies of a book that are currently
// available. The result is a snapshot: by the time a caller acts on it,
// any entry may already have been claimed by a concurrent allocation.
func (r *Repository) AvailableCopies(ctx context.Context, bookID string) ([]*model.Copy, error) {
	query := `
		SELECT id, book_id, available, held_by_user_id, created_at, updated_at
		FROM copies
		WHERE book_id = $1 AND available = TRUE
	`

	return r.queryCopies(ctx, query, bookID)
}

// CountAvailableCopies counts a book's copies with available = true.
func (r *Repository) CountAvailableCopies(ctx context.Context, bookID string) (int, error) {
	query := `SELECT COUNT(*) FROM copies WHERE book_id = $1 AND available = TRUE`

	var count int
	if err := r.pool.QueryRow(ctx, query, bookID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count available copies: %w", err)
	}

	return count, nil
}

// ClaimCopy atomically transitions a copy from available to unavailable.
// This is the single serialization point for allocation: the conditional
// UPDATE either claims the copy for the caller or reports that someone
// else got there first via the affected-row count.
func (r *Repository) ClaimCopy(ctx context.Context, copyID string, heldBy string) (bool, error) {
	result, err := r.pool.Exec(ctx, claimCopySQL, copyID, nullableString(heldBy))
	if err != nil {
		return false, fmt.Errorf("failed to claim copy: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// ReleaseCopy flips a claimed copy back to available. Returns
// ErrCopyNotFound if the copy does not exist or was not claimed.
func (r *Repository) ReleaseCopy(ctx context.Context, copyID string) error {
	result, err := r.pool.Exec(ctx, releaseCopySQL, copyID)
	if err != nil {
		return fmt.Errorf("failed to release copy: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCopyNotFound
	}

	return nil
}

// UpdateCopy updates a copy's mutable fields.
func (r *Repository) UpdateCopy(ctx context.Context, copy *model.Copy) error {
	query := `
		UPDATE copies
		SET book_id = $2, available = $3, held_by_user_id = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		copy.ID,
		copy.BookID,
		copy.Available,
		copy.HeldByUserID,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to update copy: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCopyNotFound
	}

	return nil
}

// DeleteCopy removes a copy and its closed-loan history in a single
// transaction. The copy row is locked first so a concurrent claim
// cannot open a loan between the check and the delete; a copy with an
// open loan is rejected with ErrCopyAlreadyLoaned.
func (r *Repository) DeleteCopy(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var available bool
		err := tx.QueryRow(ctx, `SELECT available FROM copies WHERE id = $1 FOR UPDATE`, id).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCopyNotFound
			}
			return fmt.Errorf("failed to lock copy: %w", err)
		}

		var open bool
		err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM loans WHERE copy_id = $1 AND end_date IS NULL)`, id).Scan(&open)
		if err != nil {
			return fmt.Errorf("failed to check open loan: %w", err)
		}
		if open {
			return ErrCopyAlreadyLoaned
		}

		if _, err := tx.Exec(ctx, `DELETE FROM loans WHERE copy_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete loan history: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM copies WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete copy: %w", err)
		}
		return nil
	})
}

// Conditional transitions shared between pool calls and transactions.
const (
	claimCopySQL = `
		UPDATE copies
		SET available = FALSE, held_by_user_id = $2, updated_at = NOW()
		WHERE id = $1 AND available = TRUE
	`

	releaseCopySQL = `
		UPDATE copies
		SET available = TRUE, held_by_user_id = NULL, updated_at = NOW()
		WHERE id = $1 AND available = FALSE
	`
)

func (r *Repository) queryCopies(ctx context.Context, query string, args ...any) ([]*model.Copy, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query copies: %w", err)
	}
	defer rows.Close()

	var copies []*model.Copy
	for rows.Next() {
		copy, err := scanCopy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan copy: %w", err)
		}
		copies = append(copies, copy)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating copies: %w", err)
	}

	return copies, nil
}

// scanCopy scans a single row into a Copy model.
func scanCopy(row pgx.Row) (*model.Copy, error) {
	var copy model.Copy
	err := row.Scan(
		&copy.ID,
		&copy.BookID,
		&copy.Available,
		&copy.HeldByUserID,
		&copy.CreatedAt,
		&copy.UpdatedAt,
	)
	return &copy, err
}

// isForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	// PostgreSQL error code 23503 is foreign_key_violation
	return err != nil && contains(err.Error(), "23503")
}

// nullableString converts empty strings to nil for nullable columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
