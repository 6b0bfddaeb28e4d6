package ports

import (
	"context"
	"time"
)

// OutboxRecord is one appointment event waiting to be published.
type OutboxRecord struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

// OutboxStore hands out unpublished records. PublishPending locks up to limit
// records, passes them to send and marks them published only if send succeeds.
// It returns the number of records published.
type OutboxStore interface {
	PublishPending(ctx context.Context, limit int, send func(ctx context.Context, records []OutboxRecord) error) (int, error)
}
