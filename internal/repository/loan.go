package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shelfwise/shelfwise/internal/model"
)

// Common errors for loan repository operations.
var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrLoanClosed        = errors.New("loan already closed")
	ErrCopyAlreadyLoaned = errors.New("copy already loaned")
	ErrInvalidDateRange  = errors.New("end date before start date")
)

const selectLoanColumns = `id, copy_id, user_id, start_date, end_date, reservation_id, created_at, updated_at`

// CreateLoanClaiming claims the copy and inserts the loan in a single
// transaction. Returns ErrCopyAlreadyLoaned when the copy is not
// available, leaving nothing mutated.
func (r *Repository) CreateLoanClaiming(ctx context.Context, loan *model.Loan) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, claimCopySQL, loan.CopyID, nullableString(loan.UserID))
		if err != nil {
			return fmt.Errorf("failed to claim copy: %w", err)
		}
		if result.RowsAffected() == 0 {
			// Distinguish a missing copy from a loaned one.
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM copies WHERE id = $1)`, loan.CopyID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check copy existence: %w", err)
			}
			if !exists {
				return ErrCopyNotFound
			}
			return ErrCopyAlreadyLoaned
		}

		return insertLoan(ctx, tx, loan)
	})
}

// CreateLoanConsumingReservation inserts the loan and deletes the
// originating reservation in a single transaction. The loan's copy must
// already be claimed (by the allocator's conditional update); callers
// release the claim if this transaction fails.
func (r *Repository) CreateLoanConsumingReservation(ctx context.Context, loan *model.Loan, reservationID string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertLoan(ctx, tx, loan); err != nil {
			return err
		}

		result, err := tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, reservationID)
		if err != nil {
			return fmt.Errorf("failed to consume reservation: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrReservationNotFound
		}
		return nil
	})
}

// GetLoanByID retrieves a loan by its ID.
func (r *Repository) GetLoanByID(ctx context.Context, id string) (*model.Loan, error) {
	query := `SELECT ` + selectLoanColumns + ` FROM loans WHERE id = $1`

	loan, err := scanLoan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan by ID: %w", err)
	}

	return loan, nil
}

// ListLoans retrieves all loans, open ones first, newest first within
// each group.
func (r *Repository) ListLoans(ctx context.Context) ([]*model.Loan, error) {
	query := `
		SELECT ` + selectLoanColumns + `
		FROM loans
		ORDER BY (end_date IS NULL) DESC, start_date DESC, id DESC
	`

	return r.queryLoans(ctx, query)
}

// ListLoansByUser retrieves all loans for a user.
func (r *Repository) ListLoansByUser(ctx context.Context, userID string) ([]*model.Loan, error) {
	query := `
		SELECT ` + selectLoanColumns + `
		FROM loans
		WHERE user_id = $1
		ORDER BY start_date DESC, id DESC
	`

	return r.queryLoans(ctx, query, userID)
}

// CountOpenLoansByBook counts open loans against a book's copies.
func (r *Repository) CountOpenLoansByBook(ctx context.Context, bookID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		WHERE c.book_id = $1 AND l.end_date IS NULL
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, bookID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count open loans: %w", err)
	}

	return count, nil
}

// UpdateLoanDates applies a partial date update: each of newStart and
// newEnd replaces the stored value only when non-nil. When newEnd closes
// the loan, the copy is released in the same transaction, so the copy is
// never visible as both available and attached to an open loan. A closed
// loan is terminal: supplying newEnd for one returns ErrLoanClosed. The
// start date of a closed loan may still be corrected. Returns the
// updated loan.
func (r *Repository) UpdateLoanDates(ctx context.Context, loanID string, newStart, newEnd *time.Time) (*model.Loan, error) {
	var updated *model.Loan

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + selectLoanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

		loan, err := scanLoan(tx.QueryRow(ctx, query, loanID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLoanNotFound
			}
			return fmt.Errorf("failed to lock loan: %w", err)
		}

		wasOpen := loan.Open()

		if newStart != nil {
			loan.StartDate = model.Date(*newStart)
		}
		if newEnd != nil {
			if !wasOpen {
				return ErrLoanClosed
			}
			end := model.Date(*newEnd)
			loan.EndDate = &end
		}
		if !loan.ValidDates() {
			return ErrInvalidDateRange
		}

		result, err := tx.Exec(ctx,
			`UPDATE loans SET start_date = $2, end_date = $3, updated_at = NOW() WHERE id = $1`,
			loan.ID, loan.StartDate, loan.EndDate,
		)
		if err != nil {
			return fmt.Errorf("failed to update loan dates: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrLoanNotFound
		}

		// Closing transition frees the copy exactly once.
		if wasOpen && !loan.Open() {
			if _, err := tx.Exec(ctx, releaseCopySQL, loan.CopyID); err != nil {
				return fmt.Errorf("failed to release copy: %w", err)
			}
		}

		updated = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteLoan removes a loan. Deleting an open loan releases its copy in
// the same transaction so the copy never stays stuck unavailable.
func (r *Repository) DeleteLoan(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var copyID string
		var endDate *time.Time
		err := tx.QueryRow(ctx, `SELECT copy_id, end_date FROM loans WHERE id = $1 FOR UPDATE`, id).
			Scan(&copyID, &endDate)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLoanNotFound
			}
			return fmt.Errorf("failed to lock loan: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM loans WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete loan: %w", err)
		}

		if endDate == nil {
			if _, err := tx.Exec(ctx, releaseCopySQL, copyID); err != nil {
				return fmt.Errorf("failed to release copy: %w", err)
			}
		}
		return nil
	})
}

func insertLoan(ctx context.Context, tx pgx.Tx, loan *model.Loan) error {
	query := `
		INSERT INTO loans (id, copy_id, user_id, start_date, end_date, reservation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query,
		loan.ID,
		loan.CopyID,
		loan.UserID,
		loan.StartDate,
		loan.EndDate,
		loan.ReservationID,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

func (r *Repository) queryLoans(ctx context.Context, query string, args ...any) ([]*model.Loan, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []*model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loans: %w", err)
	}

	return loans, nil
}

// scanLoan scans a single row into a Loan model.
func scanLoan(row pgx.Row) (*model.Loan, error) {
	var loan model.Loan
	err := row.Scan(
		&loan.ID,
		&loan.CopyID,
		&loan.UserID,
		&loan.StartDate,
		&loan.EndDate,
		&loan.ReservationID,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	return &loan, err
}
