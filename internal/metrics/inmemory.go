package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	BookCacheHits              uint64
	BookCacheMisses            uint64
	AvailabilityDurationCount  uint64
	AvailabilityDurationTotalNs int64
	CopiesAllocated            uint64
	AllocationsFailed          uint64
	LoansCreated               uint64
	LoansClosed                uint64
	LoansDeleted               uint64
	ReservationsCreated        uint64
	ReservationsConverted      uint64
	ReservationsCancelled      uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	bookCacheHits              uint64
	bookCacheMisses            uint64
	availabilityDurationCount  uint64
	availabilityDurationTotalNs int64
	copiesAllocated            uint64
	allocationsFailed          uint64
	loansCreated               uint64
	loansClosed                uint64
	loansDeleted               uint64
	reservationsCreated        uint64
	reservationsConverted      uint64
	reservationsCancelled      uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		BookCacheHits:              atomic.LoadUint64(&m.bookCacheHits),
		BookCacheMisses:            atomic.LoadUint64(&m.bookCacheMisses),
		AvailabilityDurationCount:  atomic.LoadUint64(&m.availabilityDurationCount),
		AvailabilityDurationTotalNs: atomic.LoadInt64(&m.availabilityDurationTotalNs),
		CopiesAllocated:            atomic.LoadUint64(&m.copiesAllocated),
		AllocationsFailed:          atomic.LoadUint64(&m.allocationsFailed),
		LoansCreated:               atomic.LoadUint64(&m.loansCreated),
		LoansClosed:                atomic.LoadUint64(&m.loansClosed),
		LoansDeleted:               atomic.LoadUint64(&m.loansDeleted),
		ReservationsCreated:        atomic.LoadUint64(&m.reservationsCreated),
		ReservationsConverted:      atomic.LoadUint64(&m.reservationsConverted),
		ReservationsCancelled:      atomic.LoadUint64(&m.reservationsCancelled),
	}
}

// IncBookCacheHit increments the cache hit counter.
func (m *InMemoryRecorder) IncBookCacheHit() {
	atomic.AddUint64(&m.bookCacheHits, 1)
}

// IncBookCacheMiss increments the cache miss counter.
func (m *InMemoryRecorder) IncBookCacheMiss() {
	atomic.AddUint64(&m.bookCacheMisses, 1)
}

// ObserveAvailabilityDuration records an availability projection duration.
func (m *InMemoryRecorder) ObserveAvailabilityDuration(duration time.Duration) {
	atomic.AddUint64(&m.availabilityDurationCount, 1)
	atomic.AddInt64(&m.availabilityDurationTotalNs, duration.Nanoseconds())
}

// IncCopyAllocated increments the allocated copies counter.
func (m *InMemoryRecorder) IncCopyAllocated() {
	atomic.AddUint64(&m.copiesAllocated, 1)
}

// IncAllocationFailed increments the failed allocations counter.
func (m *InMemoryRecorder) IncAllocationFailed() {
	atomic.AddUint64(&m.allocationsFailed, 1)
}

// IncLoanCreated increments the loans created counter.
func (m *InMemoryRecorder) IncLoanCreated() {
	atomic.AddUint64(&m.loansCreated, 1)
}

// IncLoanClosed increments the loans closed counter.
func (m *InMemoryRecorder) IncLoanClosed() {
	atomic.AddUint64(&m.loansClosed, 1)
}

// IncLoanDeleted increments the loans deleted counter.
func (m *InMemoryRecorder) IncLoanDeleted() {
	atomic.AddUint64(&m.loansDeleted, 1)
}

// IncReservationCreated increments the reservations created counter.
func (m *InMemoryRecorder) IncReservationCreated() {
	atomic.AddUint64(&m.reservationsCreated, 1)
}

// IncReservationConverted increments the reservations converted counter.
func (m *InMemoryRecorder) IncReservationConverted() {
	atomic.AddUint64(&m.reservationsConverted, 1)
}

// IncReservationCancelled increments the reservations cancelled counter.
func (m *InMemoryRecorder) IncReservationCancelled() {
	atomic.AddUint64(&m.reservationsCancelled, 1)
}

// IncAuditEventPublished is tracked only by exporting recorders.
func (m *InMemoryRecorder) IncAuditEventPublished(status string) {}

// IncAuditEventProcessed is tracked only by exporting recorders.
func (m *InMemoryRecorder) IncAuditEventProcessed(status string) {}

// ObserveAuditBatchSize is tracked only by exporting recorders.
func (m *InMemoryRecorder) ObserveAuditBatchSize(size int) {}

// ObserveAuditBatchDuration is tracked only by exporting recorders.
func (m *InMemoryRecorder) ObserveAuditBatchDuration(duration time.Duration) {}

// SetAuditQueueDepth is tracked only by exporting recorders.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {}

// ObserveAuditIngestLag is tracked only by exporting recorders.
func (m *InMemoryRecorder) ObserveAuditIngestLag(lag time.Duration) {}
