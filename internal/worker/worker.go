package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"todo-summary/internal/cache"
	"todo-summary/internal/config"
	"todo-summary/internal/models"
	"todo-summary/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// SummaryStore computes a user's todo counts from the store.
type SummaryStore interface {
	Summary(ctx context.Context, userID int64) (models.TodoSummary, error)
}

// Worker keeps cached summaries warm by recomputing them after every todo event.
type Worker struct {
	todos SummaryStore
	cache *cache.Cache
}

// New returns a worker writing into c.
func New(todos SummaryStore, c *cache.Cache) *Worker {
	return &Worker{todos: todos, cache: c}
}

// Run starts the Kafka consumer and blocks until ctx is done.
// One consumer per process; scale by running more replicas (consumer group shares partitions).
func (w *Worker) Run(ctx context.Context, cfg *config.Config) {
	if !cfg.EventsEnabled() {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}
	if w.cache == nil {
		logger.Info(ctx, "Worker disabled (no cache to refresh)")
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger.Info(ctx, "Kafka consumer started", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := w.HandleMessage(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid poison pill blocking the partition
		}
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}

// HandleMessage decodes one todo event and refreshes the owner's summary.
func (w *Worker) HandleMessage(ctx context.Context, payload []byte) error {
	var ev models.TodoEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	switch ev.Type {
	case models.TodoCreated, models.TodoUpdated, models.TodoDeleted:
	default:
		logger.Debug(ctx, "Worker skipped unknown event", "type", ev.Type)
		return nil
	}
	if ev.UserID <= 0 {
		return errors.New("event without owner")
	}
	gen, ok := w.cache.Generation(ctx, ev.UserID)
	if !ok {
		return errors.New("cache generation unavailable")
	}
	summary, err := w.todos.Summary(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if w.cache.SetSummary(ctx, ev.UserID, gen, summary) {
		logger.Debug(ctx, "Summary refreshed", "user_id", ev.UserID, "event", ev.Type)
	}
	return nil
}
