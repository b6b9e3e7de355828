package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-events/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer creates a consumer reading every change topic under one group.
func NewConsumer(brokers []string, topics Topics, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics.All(),
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Start delivers decoded change messages to handler until ctx is cancelled.
// Undecodable messages are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(ChangeMessage)) error {
	c.Logger.Info("KAFKA", "🔄 Kafka consumer started...")

	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read change message: %w", err)
		}

		var change ChangeMessage
		if err := json.Unmarshal(msg.Value, &change); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("⚠️ Failed to unmarshal message from %s: %v", msg.Topic, err))
			continue
		}

		c.Logger.LogKafka("RECEIVE", msg.Topic, fmt.Sprintf("%s event %d", change.Action, change.EventID))
		handler(change)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.Reader.Close()
}
