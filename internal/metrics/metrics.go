// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Catalog cache metrics
	IncBookCacheHit()
	IncBookCacheMiss()
	ObserveAvailabilityDuration(duration time.Duration)

	// Circulation metrics
	IncCopyAllocated()
	IncAllocationFailed()
	IncLoanCreated()
	IncLoanClosed()
	IncLoanDeleted()
	IncReservationCreated()
	IncReservationConverted()
	IncReservationCancelled()

	// Audit pipeline metrics
	IncAuditEventPublished(status string) // status: "success" or "dropped"
	IncAuditEventProcessed(status string) // status: "success", "failed", "skipped"
	ObserveAuditBatchSize(size int)
	ObserveAuditBatchDuration(duration time.Duration)
	SetAuditQueueDepth(depth int64)
	ObserveAuditIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
