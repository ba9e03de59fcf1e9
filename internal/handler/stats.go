package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/shelfwise/internal/handler/dto"
	"github.com/shelfwise/shelfwise/internal/model"
	"github.com/shelfwise/shelfwise/internal/repository"
)

// StatsHandler handles circulation statistics API requests.
type StatsHandler struct {
	repo   *repository.CirculationEventRepository
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(repo *repository.CirculationEventRepository, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		repo:   repo,
		logger: logger.With("component", "handler.stats"),
	}
}

// GetBookStats handles GET /api/v1/books/{id}/stats.
func (h *StatsHandler) GetBookStats(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Book ID is required")
		return
	}

	from, to := h.parseTimeRange(r)
	includeDaily := h.includeDaily(r)

	summary, err := h.repo.GetSummary(r.Context(), bookID, from, to)
	if err != nil {
		h.logger.Error("failed to get circulation summary", "book_id", bookID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch statistics")
		return
	}

	var dailyStats []*model.DailyBookStats
	if includeDaily {
		dailyStats, err = h.repo.GetDailyStats(r.Context(), bookID, from, to)
		if err != nil {
			h.logger.Error("failed to get daily stats", "book_id", bookID, "error", err)
			h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch statistics")
			return
		}
	}

	writeJSON(w, http.StatusOK, h.buildStatsResponse(bookID, from, to, summary, dailyStats))
}

// parseTimeRange extracts from/to dates from query params.
func (h *StatsHandler) parseTimeRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now().UTC()
	defaultFrom := now.AddDate(0, 0, -30) // 30 days ago
	defaultTo := now

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")

	from := defaultFrom
	to := defaultTo

	if fromStr != "" {
		if parsed, err := time.Parse("2006-01-02", fromStr); err == nil {
			from = parsed
		}
	}

	if toStr != "" {
		if parsed, err := time.Parse("2006-01-02", toStr); err == nil {
			to = parsed
		}
	}

	// Cap to 90 days max
	if to.Sub(from) > 90*24*time.Hour {
		from = to.AddDate(0, 0, -90)
	}

	// Don't allow future dates
	if to.After(now) {
		to = now
	}

	return from, to
}

// includeDaily reports whether the daily breakdown was requested. The
// breakdown is included by default; ?include=summary suppresses it.
func (h *StatsHandler) includeDaily(r *http.Request) bool {
	includeStr := r.URL.Query().Get("include")
	if includeStr == "" {
		return true
	}
	for _, inc := range splitComma(includeStr) {
		if inc == "daily" {
			return true
		}
	}
	return false
}

// buildStatsResponse constructs the API response.
func (h *StatsHandler) buildStatsResponse(
	bookID string,
	from, to time.Time,
	summary *model.CirculationSummary,
	dailyStats []*model.DailyBookStats,
) *model.CirculationStatsResponse {
	response := &model.CirculationStatsResponse{
		BookID:      bookID,
		GeneratedAt: time.Now().UTC(),
	}
	response.Period.From = from.Format("2006-01-02")
	response.Period.To = to.Format("2006-01-02")
	response.Summary = *summary

	for _, stat := range dailyStats {
		response.Daily = append(response.Daily, model.DailyStatsPoint{
			Date:              stat.Date.Format("2006-01-02"),
			LoansStarted:      stat.LoansStarted,
			LoansReturned:     stat.LoansReturned,
			AllocationsFailed: stat.AllocationsFailed,
		})
	}

	return response
}

// writeError writes a JSON error response.
func (h *StatsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// splitComma splits a comma-separated string.
func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if start < i {
				result = append(result, s[start:i])
			}
			start = i + 1
		}
	}
	return result
}
