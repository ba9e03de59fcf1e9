// Package audit provides circulation event capture and processing.
//
// Services emit events through the Publisher, which enqueues them on a
// Redis stream. The Worker drains the stream in batches and persists
// events plus daily aggregates to PostgreSQL. The pipeline is fully
// asynchronous: a slow or unavailable stream never affects circulation
// operations.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shelfwise/shelfwise/internal/metrics"
	"github.com/shelfwise/shelfwise/internal/model"
)

const (
	// StreamKey is the Redis stream for circulation events.
	StreamKey = "stream:circulation_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:circulation_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// EventPayload is the compressed event format for the Redis stream.
type EventPayload struct {
	Type          string `json:"ty"`
	BookID        string `json:"b"`
	CopyID        string `json:"c,omitempty"`
	LoanID        string `json:"l,omitempty"`
	UserID        string `json:"u,omitempty"`
	ReservationID string `json:"rs,omitempty"`
	OccurredAt    int64  `json:"t"` // Unix milliseconds
}

// payloadFromEvent converts a domain event to its wire form.
func payloadFromEvent(event model.CirculationEvent) EventPayload {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return EventPayload{
		Type:          event.Type,
		BookID:        event.BookID,
		CopyID:        event.CopyID,
		LoanID:        event.LoanID,
		UserID:        event.UserID,
		ReservationID: event.ReservationID,
		OccurredAt:    occurredAt.UnixMilli(),
	}
}

// Publisher enqueues circulation events to the Redis stream. It
// satisfies the services' event sink contract.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new audit event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "audit.publisher"),
		metrics: recorder,
	}
}

// Record publishes a circulation event without blocking the caller.
func (p *Publisher) Record(event model.CirculationEvent) {
	p.PublishAsync(payloadFromEvent(event))
}

// Publish adds an event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, payload EventPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(payload EventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to publish circulation event",
				"event_type", payload.Type,
				"book_id", payload.BookID,
				"error", err,
			)
			p.metrics.IncAuditEventPublished("dropped")
			return
		}

		p.logger.Debug("circulation event published",
			"event_type", payload.Type,
			"stream_id", streamID,
		)
		p.metrics.IncAuditEventPublished("success")
	}()
}
