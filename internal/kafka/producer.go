package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ChangeMessage is the payload published for every committed change.
type ChangeMessage struct {
	Action     string        `json:"action"`
	EventID    int64         `json:"event_id"`
	Event      *models.Event `json:"event,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type Producer struct {
	Writer MessageWriter
	Topics Topics
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics Topics, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// PublishEventCreated streams the event creation to Kafka
func (p *Producer) PublishEventCreated(ctx context.Context, event models.Event) error {
	return p.publish(ctx, p.Topics.Created, ChangeMessage{Action: "created", EventID: event.ID, Event: &event})
}

// PublishEventUpdated streams the event update to Kafka
func (p *Producer) PublishEventUpdated(ctx context.Context, event models.Event) error {
	return p.publish(ctx, p.Topics.Updated, ChangeMessage{Action: "updated", EventID: event.ID, Event: &event})
}

// PublishEventDeleted streams the event deletion to Kafka
func (p *Producer) PublishEventDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, p.Topics.Deleted, ChangeMessage{Action: "deleted", EventID: id})
}

func (p *Producer) publish(ctx context.Context, topic string, msg ChangeMessage) error {
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", topic, string(msgBytes))
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(msg.EventID, 10)),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
