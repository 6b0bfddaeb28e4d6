// Package messaging relays outbox records to Kafka.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/healthtech/clinic-scheduler/internal/api/metrics"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/telemetry"
)

const (
	defaultPollEvery = 2 * time.Second
	defaultBatchSize = 50
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

// Publisher polls the outbox and writes pending records to Kafka. The topic
// is the event type and the key is the appointment id, so one appointment's
// events land on one partition in order.
type Publisher struct {
	store     ports.OutboxStore
	writer    MessageWriter
	log       zerolog.Logger
	pollEvery time.Duration
	batchSize int
}

// NewPublisher returns a Publisher writing to the configured brokers, or nil
// when no brokers are set.
func NewPublisher(store ports.OutboxStore, cfg PublisherConfig, log zerolog.Logger) *Publisher {
	brokers := SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(store, w, cfg, log)
}

func newPublisher(store ports.OutboxStore, w MessageWriter, cfg PublisherConfig, log zerolog.Logger) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = defaultPollEvery
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Publisher{
		store:     store,
		writer:    w,
		log:       log,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

// Run publishes on every tick until ctx is cancelled, then closes the writer.
func (p *Publisher) Run(ctx context.Context) {
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Error().Err(err).Msg("kafka writer close failed")
		}
	}()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	p.log.Info().Dur("poll_every", p.pollEvery).Int("batch_size", p.batchSize).Msg("outbox publisher started")
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("outbox publisher stopped")
			return
		case <-ticker.C:
			if _, err := p.publishBatch(ctx); err != nil {
				p.log.Error().Err(err).Msg("outbox publish failed")
			}
		}
	}
}

// publishBatch sends one batch and returns how many records were marked
// published. A failed write leaves the batch pending for the next tick.
func (p *Publisher) publishBatch(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.OutboxBatchDuration.Observe(time.Since(start).Seconds()) }()

	n, err := p.store.PublishPending(ctx, p.batchSize, p.send)
	if err != nil {
		metrics.OutboxPublishErrorsTotal.Inc()
		return 0, err
	}
	return n, nil
}

func (p *Publisher) send(ctx context.Context, records []ports.OutboxRecord) error {
	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, toMessage(ctx, r))
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	for _, m := range msgs {
		metrics.OutboxPublishedTotal.WithLabelValues(m.Topic).Inc()
	}
	return nil
}

func toMessage(ctx context.Context, r ports.OutboxRecord) kafka.Message {
	msgCtx := telemetry.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
	msg := kafka.Message{
		Topic: r.EventType,
		Key:   []byte(r.AggregateID),
		Value: r.Payload,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(r.EventID)},
			{Key: headerEventType, Value: []byte(r.EventType)},
		},
	}
	msg.Headers = injectTraceHeaders(msgCtx, msg.Headers)
	return msg
}
