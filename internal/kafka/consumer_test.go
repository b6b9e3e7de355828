package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader replays queued messages, then cancels the consumer's context.
type fakeReader struct {
	queue  []kafka.Message
	err    error
	cancel context.CancelFunc
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		return msg, nil
	}
	if r.err != nil {
		return kafka.Message{}, r.err
	}
	r.cancel()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumerRoundTripsProducerMessages(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	event := models.Event{ID: 5, Name: "Meetup", Date: models.NewDate(2025, time.March, 10)}
	require.NoError(t, p.PublishEventCreated(ctx, event))
	require.NoError(t, p.PublishEventDeleted(ctx, 5))

	queue := append([]kafka.Message{{Topic: "events.updated", Value: []byte("not json")}}, w.messages...)
	r := &fakeReader{queue: queue, cancel: cancel}
	c := &Consumer{Reader: r, Logger: logger.NewNopLogger()}

	var received []ChangeMessage
	require.NoError(t, c.Start(ctx, func(msg ChangeMessage) {
		received = append(received, msg)
	}))

	require.Len(t, received, 2)
	assert.Equal(t, "created", received[0].Action)
	require.NotNil(t, received[0].Event)
	assert.Equal(t, event.Date, received[0].Event.Date)
	assert.Equal(t, "deleted", received[1].Action)
	assert.Equal(t, int64(5), received[1].EventID)

	require.NoError(t, c.Close())
	assert.True(t, r.closed)
}

func TestConsumerReturnsReadErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{err: errors.New("broker unreachable"), cancel: cancel}
	c := &Consumer{Reader: r, Logger: logger.NewNopLogger()}

	err := c.Start(ctx, func(ChangeMessage) {})
	assert.ErrorContains(t, err, "broker unreachable")
}
