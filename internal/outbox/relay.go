package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/internal/metrics"
	"github.com/VK7Cuber/Room2room-Tour/internal/repository"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// Relay moves committed outbox events to Kafka.
type Relay struct {
	repo      repository.OutboxRepository
	publisher Publisher
	topic     string
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
}

func NewRelay(repo repository.OutboxRepository, publisher Publisher, topic string, batchSize int, interval time.Duration, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		repo:      repo,
		publisher: publisher,
		topic:     topic,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
	}
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.String("topic", r.topic), zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("process outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events went out. Events that fail
// to publish are returned to the queue.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	events, err := r.repo.FetchBatch(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	var processed, failed []string
	for _, e := range events {
		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := r.publisher.Publish(sendCtx, r.topic, e.AggregateID, json.RawMessage(e.Payload))
		cancel()

		if err != nil {
			r.logger.Warn("publish outbox event", zap.String("event_id", e.ID), zap.Error(err))
			metrics.OutboxPublishErrors.Inc()
			failed = append(failed, e.ID)
			continue
		}
		metrics.OutboxPublished.Inc()
		processed = append(processed, e.ID)
	}

	// Both marks always run. Rows left in 'processing' are reclaimed by FetchBatch once their lease expires.
	markErr := r.repo.MarkProcessed(ctx, processed)
	failErr := r.repo.MarkFailed(ctx, failed)
	if failErr != nil {
		r.logger.Error("requeue failed outbox events", zap.Strings("ids", failed), zap.Error(failErr))
	}
	if err := errors.Join(markErr, failErr); err != nil {
		return len(processed), err
	}

	if len(processed) > 0 {
		r.logger.Debug("outbox batch published", zap.Int("count", len(processed)))
	}
	return len(processed), nil
}
