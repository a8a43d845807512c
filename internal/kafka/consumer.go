package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Consumer struct {
	reader *kafka.Reader
	log    *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, log: log}
}

// Start blocks, handing every record to handle until ctx is cancelled or the reader is closed.
func (c *Consumer) Start(ctx context.Context, handle func(key string, value []byte)) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			// io.EOF means the reader was closed.
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.log.Warn("kafka read error", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		handle(string(m.Key), m.Value)
	}
}

func (c *Consumer) Close(ctx context.Context) error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
