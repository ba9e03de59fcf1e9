//go:build integration

package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shelfwise/shelfwise/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	// Verify all expected tables exist
	tables := []string{
		"books",
		"copies",
		"users",
		"loans",
		"reservations",
		"keywords",
		"api_keys",
		"circulation_events",
		"daily_book_stats",
	}

	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_LoansTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"copy_id",
		"user_id",
		"start_date",
		"end_date",
		"reservation_id",
		"created_at",
		"updated_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "loans", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in loans table", col)
			}
		})
	}
}

func TestIntegrationMigration_CirculationConstraints(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	if err := testutil.ResetCirculationSchema(ctx, pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	// Seed the rows the constraints hang off.
	_, err := pool.Exec(ctx, `
		INSERT INTO books (id, isbn, title, author) VALUES ('book-1', '978-0-00-000000-1', 'Title', 'Author');
		INSERT INTO users (id, email) VALUES ('user-1', 'patron@example.com');
		INSERT INTO copies (id, book_id) VALUES ('copy-1', 'book-1')
	`)
	if err != nil {
		t.Fatalf("seed rows: %v", err)
	}

	// Duplicate ISBN violates the unique constraint.
	_, err = pool.Exec(ctx, `
		INSERT INTO books (id, isbn, title, author)
		VALUES ('book-2', '978-0-00-000000-1', 'Other', 'Author')
	`)
	if err == nil {
		t.Error("Expected unique violation for duplicate isbn")
	}

	// end_date before start_date violates the date range check.
	_, err = pool.Exec(ctx, `
		INSERT INTO loans (id, copy_id, user_id, start_date, end_date)
		VALUES ('loan-1', 'copy-1', 'user-1', '2026-02-01', '2026-01-01')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for end_date before start_date")
	}

	// Only one open loan per copy.
	_, err = pool.Exec(ctx, `
		INSERT INTO loans (id, copy_id, user_id, start_date)
		VALUES ('loan-2', 'copy-1', 'user-1', '2026-01-01')
	`)
	if err != nil {
		t.Fatalf("insert open loan: %v", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO loans (id, copy_id, user_id, start_date)
		VALUES ('loan-3', 'copy-1', 'user-1', '2026-01-02')
	`)
	if err == nil {
		t.Error("Expected unique violation for second open loan on the same copy")
	}

	// Loan history blocks a raw copy delete at the database layer.
	_, err = pool.Exec(ctx, `DELETE FROM copies WHERE id = 'copy-1'`)
	if err == nil {
		t.Error("Expected foreign key violation when deleting a copy with loans")
	}

	// A loan on a missing copy violates the foreign key.
	_, err = pool.Exec(ctx, `
		INSERT INTO loans (id, copy_id, user_id, start_date)
		VALUES ('loan-4', 'copy-missing', 'user-1', '2026-01-01')
	`)
	if err == nil {
		t.Error("Expected foreign key violation for missing copy")
	}
}

func TestIntegrationMigration_APIKeysTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"user_id",
		"key_hash",
		"key_prefix",
		"scopes",
		"rate_limit_tier",
		"name",
		"revoked_at",
		"last_used_at",
		"created_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "api_keys", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in api_keys table", col)
			}
		})
	}
}

func TestIntegrationMigration_EventTablesSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	eventCols := []string{
		"id",
		"event_id",
		"event_type",
		"book_id",
		"copy_id",
		"loan_id",
		"user_id",
		"reservation_id",
		"occurred_at",
		"created_at",
	}

	for _, col := range eventCols {
		exists, err := columnExists(ctx, pool, "circulation_events", col)
		if err != nil {
			t.Fatalf("columnExists failed: %v", err)
		}
		if !exists {
			t.Errorf("Column %q should exist in circulation_events table", col)
		}
	}

	statsColumns := []string{
		"id",
		"book_id",
		"date",
		"loans_started",
		"loans_returned",
		"allocations_failed",
	}

	for _, col := range statsColumns {
		exists, err := columnExists(ctx, pool, "daily_book_stats", col)
		if err != nil {
			t.Fatalf("columnExists failed: %v", err)
		}
		if !exists {
			t.Errorf("Column %q should exist in daily_book_stats table", col)
		}
	}
}

func TestIntegrationMigration_RollbackCirculation(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	// Apply down migration
	downPath := filepath.Join(root, "migrations", "000001_circulation.down.sql")
	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		t.Fatalf("read down migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}

	// Verify tables don't exist
	for _, table := range []string{"books", "copies", "loans", "reservations", "keywords"} {
		exists, err := tableExists(ctx, pool, table)
		if err != nil {
			t.Fatalf("tableExists failed: %v", err)
		}
		if exists {
			t.Errorf("%s table should not exist after rollback", table)
		}
	}

	// Re-apply up migration for cleanup
	upPath := filepath.Join(root, "migrations", "000001_circulation.up.sql")
	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		t.Fatalf("reapply up migration: %v", err)
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	// Every migration uses IF NOT EXISTS, so a second apply is a no-op.
	for _, name := range []string{
		"000001_circulation.up.sql",
		"000002_api_keys.up.sql",
		"000003_events.up.sql",
	} {
		upPath := filepath.Join(root, "migrations", name)
		upSQL, err := os.ReadFile(upPath)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
			t.Fatalf("second apply of %s should not fail: %v", name, err)
		}
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	return ctx, pool
}
