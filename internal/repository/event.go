package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shelfwise/shelfwise/internal/model"
)

// CirculationEventRepository provides database access for circulation
// audit events.
type CirculationEventRepository struct {
	repo *Repository
}

// NewCirculationEventRepository creates a new CirculationEventRepository.
func NewCirculationEventRepository(repo *Repository) *CirculationEventRepository {
	return &CirculationEventRepository{repo: repo}
}

// BulkInsert inserts multiple circulation events with idempotency via
// ON CONFLICT DO NOTHING, keyed by the Redis stream event ID.
func (r *CirculationEventRepository) BulkInsert(ctx context.Context, events []*model.CirculationEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO circulation_events (
			id, event_id, event_type, book_id, copy_id, loan_id,
			user_id, reservation_id, occurred_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.ID,
			event.EventID,
			event.Type,
			event.BookID,
			nullableString(event.CopyID),
			nullableString(event.LoanID),
			nullableString(event.UserID),
			nullableString(event.ReservationID),
			event.OccurredAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// UpdateDailyStats recomputes daily_book_stats rows for every book/date
// combination touched by the batch. Recomputing from circulation_events
// keeps the counters correct under redelivery.
func (r *CirculationEventRepository) UpdateDailyStats(ctx context.Context, events []*model.CirculationEvent) error {
	if len(events) == 0 {
		return nil
	}

	keys := uniqueDailyKeys(events)
	for _, key := range keys {
		acc, err := r.recalculateDailyStat(ctx, key.bookID, key.date)
		if err != nil {
			return fmt.Errorf("recalculate daily stat %s:%s: %w", key.bookID, key.date.Format("2006-01-02"), err)
		}
		if err := r.upsertDailyStat(ctx, acc); err != nil {
			return fmt.Errorf("upsert daily stat %s:%s: %w", key.bookID, key.date.Format("2006-01-02"), err)
		}
	}

	return nil
}

// dailyStatsAccumulator accumulates counters for a single book/date.
type dailyStatsAccumulator struct {
	bookID            string
	date              time.Time
	loansStarted      int64
	loansReturned     int64
	allocationsFailed int64
}

type dailyStatsKey struct {
	bookID string
	date   time.Time
}

func uniqueDailyKeys(events []*model.CirculationEvent) []dailyStatsKey {
	seen := make(map[string]dailyStatsKey)
	for _, event := range events {
		day := event.OccurredAt.UTC().Truncate(24 * time.Hour)
		key := fmt.Sprintf("%s:%s", event.BookID, day.Format("2006-01-02"))
		seen[key] = dailyStatsKey{bookID: event.BookID, date: day}
	}

	keys := make([]dailyStatsKey, 0, len(seen))
	for _, key := range seen {
		keys = append(keys, key)
	}
	return keys
}

func (r *CirculationEventRepository) recalculateDailyStat(ctx context.Context, bookID string, date time.Time) (*dailyStatsAccumulator, error) {
	start := date.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT event_type, COUNT(*)
		FROM circulation_events
		WHERE book_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY event_type
	`

	rows, err := r.repo.pool.Query(ctx, query, bookID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query circulation events: %w", err)
	}
	defer rows.Close()

	acc := &dailyStatsAccumulator{bookID: bookID, date: start}
	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}

		switch eventType {
		case model.EventLoanCreated, model.EventReservationConverted:
			acc.loansStarted += count
		case model.EventLoanClosed:
			acc.loansReturned += count
		case model.EventAllocationFailed:
			acc.allocationsFailed += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}

	return acc, nil
}

// upsertDailyStat inserts or updates a daily_book_stats row.
func (r *CirculationEventRepository) upsertDailyStat(ctx context.Context, acc *dailyStatsAccumulator) error {
	id := fmt.Sprintf("%s:%s", acc.bookID, acc.date.Format("2006-01-02"))

	query := `
		INSERT INTO daily_book_stats (
			id, book_id, date, loans_started, loans_returned,
			allocations_failed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (book_id, date) DO UPDATE SET
			loans_started = EXCLUDED.loans_started,
			loans_returned = EXCLUDED.loans_returned,
			allocations_failed = EXCLUDED.allocations_failed,
			updated_at = NOW()
	`

	_, err := r.repo.pool.Exec(ctx, query,
		id,
		acc.bookID,
		acc.date,
		acc.loansStarted,
		acc.loansReturned,
		acc.allocationsFailed,
	)

	return err
}

// GetDailyStats retrieves daily stats for a book within a date range.
func (r *CirculationEventRepository) GetDailyStats(ctx context.Context, bookID string, from, to time.Time) ([]*model.DailyBookStats, error) {
	query := `
		SELECT id, book_id, date, loans_started, loans_returned,
			   allocations_failed, created_at, updated_at
		FROM daily_book_stats
		WHERE book_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC
	`

	rows, err := r.repo.pool.Query(ctx, query, bookID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*model.DailyBookStats
	for rows.Next() {
		var stat model.DailyBookStats
		err := rows.Scan(
			&stat.ID,
			&stat.BookID,
			&stat.Date,
			&stat.LoansStarted,
			&stat.LoansReturned,
			&stat.AllocationsFailed,
			&stat.CreatedAt,
			&stat.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		stats = append(stats, &stat)
	}

	return stats, rows.Err()
}

// GetSummary retrieves aggregated circulation figures for a book.
func (r *CirculationEventRepository) GetSummary(ctx context.Context, bookID string, from, to time.Time) (*model.CirculationSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(loans_started), 0),
			COALESCE(SUM(loans_returned), 0),
			COALESCE(SUM(allocations_failed), 0)
		FROM daily_book_stats
		WHERE book_id = $1 AND date >= $2 AND date <= $3
	`

	var summary model.CirculationSummary
	err := r.repo.pool.QueryRow(ctx, query, bookID, from, to).Scan(
		&summary.LoansStarted,
		&summary.LoansReturned,
		&summary.AllocationsFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("query circulation summary: %w", err)
	}

	return &summary, nil
}
