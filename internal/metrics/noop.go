package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncBookCacheHit is a no-op.
func (n *NoopRecorder) IncBookCacheHit() {}

// IncBookCacheMiss is a no-op.
func (n *NoopRecorder) IncBookCacheMiss() {}

// ObserveAvailabilityDuration is a no-op.
func (n *NoopRecorder) ObserveAvailabilityDuration(duration time.Duration) {}

// IncCopyAllocated is a no-op.
func (n *NoopRecorder) IncCopyAllocated() {}

// IncAllocationFailed is a no-op.
func (n *NoopRecorder) IncAllocationFailed() {}

// IncLoanCreated is a no-op.
func (n *NoopRecorder) IncLoanCreated() {}

// IncLoanClosed is a no-op.
func (n *NoopRecorder) IncLoanClosed() {}

// IncLoanDeleted is a no-op.
func (n *NoopRecorder) IncLoanDeleted() {}

// IncReservationCreated is a no-op.
func (n *NoopRecorder) IncReservationCreated() {}

// IncReservationConverted is a no-op.
func (n *NoopRecorder) IncReservationConverted() {}

// IncReservationCancelled is a no-op.
func (n *NoopRecorder) IncReservationCancelled() {}

// IncAuditEventPublished is a no-op.
func (n *NoopRecorder) IncAuditEventPublished(status string) {}

// IncAuditEventProcessed is a no-op.
func (n *NoopRecorder) IncAuditEventProcessed(status string) {}

// ObserveAuditBatchSize is a no-op.
func (n *NoopRecorder) ObserveAuditBatchSize(size int) {}

// ObserveAuditBatchDuration is a no-op.
func (n *NoopRecorder) ObserveAuditBatchDuration(duration time.Duration) {}

// SetAuditQueueDepth is a no-op.
func (n *NoopRecorder) SetAuditQueueDepth(depth int64) {}

// ObserveAuditIngestLag is a no-op.
func (n *NoopRecorder) ObserveAuditIngestLag(lag time.Duration) {}
