package handler

import (
	"fmt"
	"net/http"

	"github.com/shelfwise/shelfwise/internal/metrics"
)

// MetricsHandler exposes in-memory metrics. When the Prometheus
// recorder is configured the server mounts promhttp instead and this
// handler is unused.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "shelfwise_book_cache_hits_total %d\n", snap.BookCacheHits)
	writeMetric(w, "shelfwise_book_cache_misses_total %d\n", snap.BookCacheMisses)
	writeMetric(w, "shelfwise_availability_projection_seconds_count %d\n", snap.AvailabilityDurationCount)
	writeMetric(w, "shelfwise_availability_projection_seconds_sum %.6f\n", float64(snap.AvailabilityDurationTotalNs)/1e9)

	writeMetric(w, "shelfwise_copies_allocated_total %d\n", snap.CopiesAllocated)
	writeMetric(w, "shelfwise_allocations_failed_total %d\n", snap.AllocationsFailed)

	writeMetric(w, "shelfwise_loans_total{action=\"created\"} %d\n", snap.LoansCreated)
	writeMetric(w, "shelfwise_loans_total{action=\"closed\"} %d\n", snap.LoansClosed)
	writeMetric(w, "shelfwise_loans_total{action=\"deleted\"} %d\n", snap.LoansDeleted)

	writeMetric(w, "shelfwise_reservations_total{action=\"created\"} %d\n", snap.ReservationsCreated)
	writeMetric(w, "shelfwise_reservations_total{action=\"converted\"} %d\n", snap.ReservationsConverted)
	writeMetric(w, "shelfwise_reservations_total{action=\"cancelled\"} %d\n", snap.ReservationsCancelled)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
