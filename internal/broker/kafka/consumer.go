package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ParcelTrack/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic with at-least-once delivery: an offset is committed
// only after the handler returned nil for it.
type Consumer struct {
	r messageReader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		// a new group starts from the oldest retained parcel event
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return &Consumer{
		r: kafka.NewReader(cfg),
	}
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume blocks until ctx is done, the reader fails or handler returns an
// error. A failed message stays uncommitted and is redelivered on restart.
func (c *Consumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "fetch message")
		}
		if err := handler(msg.Key, msg.Value); err != nil {
			return err
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}

// ConsumeParcelUpdates decodes parcel.updated payloads for handle. A payload
// that is not a ParcelUpdated is reported to onMalformed and committed. A
// message without parcel_id takes it from the message key.
func (c *Consumer) ConsumeParcelUpdates(
	ctx context.Context,
	handle func(ctx context.Context, m messages.ParcelUpdated) error,
	onMalformed func(key []byte, err error),
) error {
	return c.Consume(ctx, func(key, value []byte) error {
		var m messages.ParcelUpdated
		if err := json.Unmarshal(value, &m); err != nil {
			if onMalformed != nil {
				onMalformed(key, errors.Wrap(err, "decode parcel.updated"))
			}
			return nil
		}
		if m.ParcelID == "" {
			m.ParcelID = string(key)
		}
		return handle(ctx, m)
	})
}
