package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fintrack/pkg/trace"
)

// Publisher sends a JSON payload to the events exchange.
type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// Store is the part of Repository the dispatcher needs.
type Store interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// Dispatcher polls the outbox and publishes pending events.
type Dispatcher struct {
	repo       Store
	publisher  Publisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(repo Store, publisher Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,
		interval:   time.Second,
		batchSize:  100,
	}
}

func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	d.batchSize = batchSize
	return d
}

// Start blocks until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("starting outbox dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce publishes one batch and returns how many events were sent.
func (d *Dispatcher) RunOnce(ctx context.Context) int {
	events, err := d.repo.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("failed to get pending outbox events", zap.Error(err))
		return 0
	}

	sent := 0
	for _, event := range events {
		log := d.logger.With(zap.Int64("event_id", event.ID), zap.String("routing_key", event.RoutingKey))

		if err := publish(ctx, d.publisher, event); err != nil {
			log.Error("failed to publish outbox event", zap.Error(err))
			if err := d.repo.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				log.Error("failed to mark outbox event failed", zap.Error(err))
			}
			continue
		}

		if err := d.repo.MarkAsSent(ctx, event.ID); err != nil {
			// published but not marked: it will be sent again, consumers dedup
			log.Error("failed to mark outbox event sent", zap.Error(err))
			continue
		}
		sent++
		log.Debug("outbox event published")
	}
	return sent
}

func publish(ctx context.Context, p Publisher, event *Event) error {
	if !json.Valid(event.Payload) {
		return fmt.Errorf("outbox event %d has invalid payload", event.ID)
	}
	ctx = withPayloadTrace(ctx, event.Payload)
	if err := p.PublishWithContext(ctx, event.RoutingKey, event.Payload); err != nil {
		return fmt.Errorf("publish to MQ: %w", err)
	}
	return nil
}

// withPayloadTrace carries the payload's trace_id into ctx.
func withPayloadTrace(ctx context.Context, payload json.RawMessage) context.Context {
	var p struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &p); err == nil && p.TraceID != "" {
		return trace.WithContext(ctx, p.TraceID)
	}
	return ctx
}
