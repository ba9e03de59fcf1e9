package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exports metrics through a prometheus.Registerer.
type PrometheusRecorder struct {
	bookCacheHits   prometheus.Counter
	bookCacheMisses prometheus.Counter
	availability    prometheus.Histogram

	copiesAllocated   prometheus.Counter
	allocationsFailed prometheus.Counter
	loans             *prometheus.CounterVec
	reservations      *prometheus.CounterVec

	auditPublished     *prometheus.CounterVec
	auditProcessed     *prometheus.CounterVec
	auditBatchSize     prometheus.Histogram
	auditBatchDuration prometheus.Histogram
	auditQueueDepth    prometheus.Gauge
	auditIngestLag     prometheus.Histogram
}

// NewPrometheus returns a Recorder registered against reg.
// Pass prometheus.DefaultRegisterer for the default registry.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		bookCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "shelfwise_book_cache_hits_total",
			Help: "Book metadata cache hits.",
		}),
		bookCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "shelfwise_book_cache_misses_total",
			Help: "Book metadata cache misses.",
		}),
		availability: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfwise_availability_projection_seconds",
			Help:    "Time to project book availability from copy state.",
			Buckets: prometheus.DefBuckets,
		}),
		copiesAllocated: factory.NewCounter(prometheus.CounterOpts{
			Name: "shelfwise_copies_allocated_total",
			Help: "Copies successfully claimed for a loan.",
		}),
		allocationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "shelfwise_allocations_failed_total",
			Help: "Allocation attempts that found no available copy.",
		}),
		loans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwise_loans_total",
			Help: "Loan lifecycle transitions by action.",
		}, []string{"action"}),
		reservations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwise_reservations_total",
			Help: "Reservation lifecycle transitions by action.",
		}, []string{"action"}),
		auditPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwise_audit_events_published_total",
			Help: "Audit events published to the stream by status.",
		}, []string{"status"}),
		auditProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwise_audit_events_processed_total",
			Help: "Audit events processed by the worker by status.",
		}, []string{"status"}),
		auditBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfwise_audit_batch_size",
			Help:    "Audit events per worker batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		auditBatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfwise_audit_batch_duration_seconds",
			Help:    "Time to persist one audit batch.",
			Buckets: prometheus.DefBuckets,
		}),
		auditQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shelfwise_audit_queue_depth",
			Help: "Pending entries in the audit stream.",
		}),
		auditIngestLag: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfwise_audit_ingest_lag_seconds",
			Help:    "Delay between event occurrence and persistence.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// IncBookCacheHit increments the cache hit counter.
func (p *PrometheusRecorder) IncBookCacheHit() { p.bookCacheHits.Inc() }

// IncBookCacheMiss increments the cache miss counter.
func (p *PrometheusRecorder) IncBookCacheMiss() { p.bookCacheMisses.Inc() }

// ObserveAvailabilityDuration records an availability projection duration.
func (p *PrometheusRecorder) ObserveAvailabilityDuration(duration time.Duration) {
	p.availability.Observe(duration.Seconds())
}

// IncCopyAllocated increments the allocated copies counter.
func (p *PrometheusRecorder) IncCopyAllocated() { p.copiesAllocated.Inc() }

// IncAllocationFailed increments the failed allocations counter.
func (p *PrometheusRecorder) IncAllocationFailed() { p.allocationsFailed.Inc() }

// IncLoanCreated increments the loans created counter.
func (p *PrometheusRecorder) IncLoanCreated() { p.loans.WithLabelValues("created").Inc() }

// IncLoanClosed increments the loans closed counter.
func (p *PrometheusRecorder) IncLoanClosed() { p.loans.WithLabelValues("closed").Inc() }

// IncLoanDeleted increments the loans deleted counter.
func (p *PrometheusRecorder) IncLoanDeleted() { p.loans.WithLabelValues("deleted").Inc() }

// IncReservationCreated increments the reservations created counter.
func (p *PrometheusRecorder) IncReservationCreated() {
	p.reservations.WithLabelValues("created").Inc()
}

// IncReservationConverted increments the reservations converted counter.
func (p *PrometheusRecorder) IncReservationConverted() {
	p.reservations.WithLabelValues("converted").Inc()
}

// IncReservationCancelled increments the reservations cancelled counter.
func (p *PrometheusRecorder) IncReservationCancelled() {
	p.reservations.WithLabelValues("cancelled").Inc()
}

// IncAuditEventPublished increments the published counter for a status.
func (p *PrometheusRecorder) IncAuditEventPublished(status string) {
	p.auditPublished.WithLabelValues(status).Inc()
}

// IncAuditEventProcessed increments the processed counter for a status.
func (p *PrometheusRecorder) IncAuditEventProcessed(status string) {
	p.auditProcessed.WithLabelValues(status).Inc()
}

// ObserveAuditBatchSize records the size of one audit batch.
func (p *PrometheusRecorder) ObserveAuditBatchSize(size int) {
	p.auditBatchSize.Observe(float64(size))
}

// ObserveAuditBatchDuration records the duration of one audit batch.
func (p *PrometheusRecorder) ObserveAuditBatchDuration(duration time.Duration) {
	p.auditBatchDuration.Observe(duration.Seconds())
}

// SetAuditQueueDepth sets the pending stream entry gauge.
func (p *PrometheusRecorder) SetAuditQueueDepth(depth int64) {
	p.auditQueueDepth.Set(float64(depth))
}

// ObserveAuditIngestLag records the lag of one persisted event.
func (p *PrometheusRecorder) ObserveAuditIngestLag(lag time.Duration) {
	p.auditIngestLag.Observe(lag.Seconds())
}
