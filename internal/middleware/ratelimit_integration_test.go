//go:build integration

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/model"
)

func newRateLimitCache(t *testing.T, ctx context.Context) *cache.Cache {
	t.Helper()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	cacheClient, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { cacheClient.Close() })

	if err := cacheClient.Client().FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return cacheClient
}

// TestRateLimitConcurrency hammers a single key from many goroutines
// and checks the limiter never over-admits.
func TestRateLimitConcurrency(t *testing.T) {
	ctx := context.Background()
	cacheClient := newRateLimitCache(t, ctx)

	const (
		rpm   = 10
		burst = 5
	)

	var allowed, rejected int64
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 3 {
				result, err := cacheClient.CheckAPIRateLimit(ctx, "desk-key-concurrent", rpm, burst)
				if err != nil {
					t.Errorf("CheckAPIRateLimit error: %v", err)
					return
				}
				if result.Allowed {
					atomic.AddInt64(&allowed, 1)
				} else {
					atomic.AddInt64(&rejected, 1)
				}
			}
		}()
	}
	wg.Wait()

	t.Logf("concurrency: %d allowed, %d rejected", allowed, rejected)

	if allowed > int64(burst+rpm) {
		t.Errorf("admitted %d requests, want at most %d", allowed, burst+rpm)
	}
	if rejected == 0 {
		t.Error("expected some requests to be rejected")
	}
}

// TestIPRateLimitConcurrency does the same for the per-IP limiter on
// the public availability endpoint.
func TestIPRateLimitConcurrency(t *testing.T) {
	ctx := context.Background()
	cacheClient := newRateLimitCache(t, ctx)

	var allowed, rejected int64
	var wg sync.WaitGroup
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := cacheClient.CheckIPRateLimit(ctx, "192.168.1.100", 5, 3)
			if err != nil {
				t.Errorf("CheckIPRateLimit error: %v", err)
				return
			}
			if result.Allowed {
				atomic.AddInt64(&allowed, 1)
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	t.Logf("ip limiter: %d allowed, %d rejected", allowed, rejected)

	if rejected == 0 {
		t.Error("expected some requests to be rejected")
	}
}

func TestRateLimitHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	setRateLimitHeaders(rec, 60, 45, time.Now().Add(time.Minute))
	rec.WriteHeader(http.StatusOK)

	if got := rec.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "45" {
		t.Errorf("X-RateLimit-Remaining = %q, want 45", got)
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset not set")
	}
}

func TestRateLimitErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	writeRateLimitError(rec, 5*time.Second)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if rec.Body.Len() == 0 {
		t.Error("error body is empty")
	}
}

func TestTierConfigs(t *testing.T) {
	tests := []struct {
		tier    string
		wantRPM int
	}{
		{model.TierDesk, 120},
		{model.TierBranch, 1200},
		{model.TierUnlimited, 0},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			config := model.TierConfigs[tt.tier]
			if config.RequestsPerMinute != tt.wantRPM {
				t.Errorf("tier %s RPM = %d, want %d", tt.tier, config.RequestsPerMinute, tt.wantRPM)
			}
		})
	}
}
