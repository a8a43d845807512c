package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fathima-sithara/dm-service/internal/events"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w, topic: topic}
}

func (p *Producer) PublishMessage(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Publish keys the record by conversation so per-conversation order is kept.
func (p *Producer) Publish(ctx context.Context, ev events.Event) error {
	return p.PublishMessage(ctx, ev.Key(), ev)
}

func (p *Producer) Close(ctx context.Context) error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
