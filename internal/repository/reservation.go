package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shelfwise/shelfwise/internal/model"
)

// Common errors for reservation repository operations.
var (
	ErrReservationNotFound = errors.New("reservation not found")
)

// CreateReservation inserts a new reservation into the database.
func (r *Repository) CreateReservation(ctx context.Context, reservation *model.Reservation) error {
	query := `
		INSERT INTO reservations (id, user_id, book_id, date, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		reservation.ID,
		reservation.UserID,
		reservation.BookID,
		reservation.Date,
		reservation.CreatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

// GetReservationByID retrieves a reservation by its ID.
func (r *Repository) GetReservationByID(ctx context.Context, id string) (*model.Reservation, error) {
	query := `
		SELECT id, user_id, book_id, date, created_at
		FROM reservations
		WHERE id = $1
	`

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation by ID: %w", err)
	}

	return reservation, nil
}

// ListReservations retrieves all active reservations, oldest date first.
func (r *Repository) ListReservations(ctx context.Context) ([]*model.Reservation, error) {
	query := `
		SELECT id, user_id, book_id, date, created_at
		FROM reservations
		ORDER BY date, id
	`

	return r.queryReservations(ctx, query)
}

// ListReservationsByUser retrieves all reservations for a user.
func (r *Repository) ListReservationsByUser(ctx context.Context, userID string) ([]*model.Reservation, error) {
	query := `
		SELECT id, user_id, book_id, date, created_at
		FROM reservations
		WHERE user_id = $1
		ORDER BY date, id
	`

	return r.queryReservations(ctx, query, userID)
}

// UpdateReservation updates a reservation's mutable fields.
func (r *Repository) UpdateReservation(ctx context.Context, reservation *model.Reservation) error {
	query := `
		UPDATE reservations
		SET user_id = $2, book_id = $3, date = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		reservation.ID,
		reservation.UserID,
		reservation.BookID,
		reservation.Date,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to update reservation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrReservationNotFound
	}

	return nil
}

// DeleteReservation removes a reservation with no side effects on
// copies or loans.
func (r *Repository) DeleteReservation(ctx context.Context, id string) error {
	query := `DELETE FROM reservations WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrReservationNotFound
	}

	return nil
}

func (r *Repository) queryReservations(ctx context.Context, query string, args ...any) ([]*model.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*model.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return reservations, nil
}

// scanReservation scans a single row into a Reservation model.
func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var reservation model.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.BookID,
		&reservation.Date,
		&reservation.CreatedAt,
	)
	return &reservation, err
}
