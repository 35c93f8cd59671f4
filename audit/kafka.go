package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"moneymarket/core/events"
)

// Publisher mirrors the market event stream onto a Kafka topic for external
// consumers. Like the journal, it implements the events.Emitter interface and
// reports delivery failures through the logger only.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher constructs a publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// Emit implements the events.Emitter interface.
func (p *Publisher) Emit(event events.Event) {
	if p == nil || p.writer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("event publisher: marshal event", "type", event.EventType(), "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventType()),
		Value: payload,
	})
	if err != nil {
		p.logger.Error("event publisher: deliver event", "type", event.EventType(), "error", err)
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
