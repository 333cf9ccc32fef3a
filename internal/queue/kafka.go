package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"todo-summary/internal/config"
	"todo-summary/internal/models"
	"todo-summary/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// topicConfig is the events topic as NewProducer creates it.
func topicConfig(cfg *config.Config) kafka.TopicConfig {
	return kafka.TopicConfig{
		Topic:             cfg.KafkaTopic,
		NumPartitions:     cfg.KafkaPartitions,
		ReplicationFactor: 1,
	}
}

// createTopic asks the cluster for the events topic. An existing topic is fine;
// other failures are only logged because the writer reports its own errors.
func createTopic(ctx context.Context, cfg *config.Config) {
	client := &kafka.Client{Addr: kafka.TCP(cfg.KafkaBrokers...), Timeout: 10 * time.Second}
	resp, err := client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{topicConfig(cfg)},
	})
	if err == nil {
		err = resp.Errors[cfg.KafkaTopic]
	}
	switch {
	case errors.Is(err, kafka.TopicAlreadyExists):
		logger.Debug(ctx, "Kafka topic exists", "topic", cfg.KafkaTopic)
	case err != nil:
		logger.Warn(ctx, "Kafka topic creation failed", "error", err, "topic", cfg.KafkaTopic)
	default:
		logger.Info(ctx, "Kafka topic created", "topic", cfg.KafkaTopic, "partitions", cfg.KafkaPartitions)
	}
}

// NewEvent stamps a todo event with a fresh id and the current time.
func NewEvent(eventType string, todoID, userID int64) models.TodoEvent {
	return models.TodoEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		TodoID:     todoID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// Producer publishes todo events. A nil *Producer drops events silently.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates the events topic if needed and returns an async
// producer for it, or nil when no brokers are configured.
func NewProducer(ctx context.Context, cfg *config.Config) *Producer {
	if !cfg.EventsEnabled() {
		logger.Info(ctx, "Todo events disabled (no Kafka brokers)")
		return nil
	}
	createTopic(ctx, cfg)
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		RequiredAcks: kafka.RequireOne,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn(context.Background(), "Kafka async write failed", "error", err, "messages", len(messages))
			}
		},
	}
	logger.Info(ctx, "Kafka producer initialized", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	return &Producer{writer: w}
}

// Message encodes ev, keyed by owner so one user's events stay ordered.
func Message(ev models.TodoEvent) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.UserID, 10)),
		Value: payload,
	}, nil
}

// Publish enqueues ev. Non-blocking because the writer is async.
func (p *Producer) Publish(ctx context.Context, ev models.TodoEvent) error {
	if p == nil {
		return nil
	}
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
