package repository

import (
	"testing"
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

func TestUniqueDailyKeys(t *testing.T) {
	day1 := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	day1Later := time.Date(2026, 8, 1, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 0, 15, 0, 0, time.UTC)

	events := []*model.CirculationEvent{
		{BookID: "book-a", Type: model.EventLoanCreated, OccurredAt: day1},
		{BookID: "book-a", Type: model.EventLoanClosed, OccurredAt: day1Later},
		{BookID: "book-a", Type: model.EventLoanCreated, OccurredAt: day2},
		{BookID: "book-b", Type: model.EventAllocationFailed, OccurredAt: day1},
	}

	keys := uniqueDailyKeys(events)

	if len(keys) != 3 {
		t.Fatalf("expected 3 unique keys, got %d", len(keys))
	}

	seen := make(map[string]bool)
	for _, key := range keys {
		seen[key.bookID+":"+key.date.Format("2006-01-02")] = true
		if key.date.Hour() != 0 || key.date.Minute() != 0 {
			t.Errorf("expected date truncated to midnight, got %v", key.date)
		}
	}

	for _, want := range []string{"book-a:2026-08-01", "book-a:2026-08-02", "book-b:2026-08-01"} {
		if !seen[want] {
			t.Errorf("missing key %s", want)
		}
	}
}

func TestUniqueDailyKeys_Empty(t *testing.T) {
	if keys := uniqueDailyKeys(nil); len(keys) != 0 {
		t.Fatalf("expected no keys, got %d", len(keys))
	}
}
