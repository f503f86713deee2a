package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/power-outage-etl/internal/config"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces outage-inserted events to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured outage topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes the events in a single WriteMessages call.
// Messages are keyed by reference id so one outage always lands on the
// same partition.
func (p *Publisher) Publish(ctx context.Context, events []domain.OutageInserted) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d outages: %w", len(msgs), err)
	}
	p.logger.Debug("outages published", "count", len(msgs), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(event domain.OutageInserted) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize outage event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Outage.ReferenceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "provider", Value: []byte(event.ProviderName)},
			{Key: "inserted_at", Value: []byte(event.InsertedAt.Format(time.RFC3339))},
		},
	}, nil
}
