// Package kafka exports newly created outage records to a Kafka topic
// for downstream analytics. Publishing is optional; a deployment
// without brokers configured simply skips it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

// Publisher produces outage records to a Kafka topic.
// It implements ingest.RecordPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the outage export topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishRecords serializes and publishes outage records in a single
// WriteMessages call. Only records new to this cycle should be passed;
// the fingerprint key lets consumers deduplicate on replay anyway.
func (p *Publisher) PublishRecords(ctx context.Context, records []domain.OutageRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an OutageRecord into a Kafka message.
func serializeToMessage(rec domain.OutageRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize outage record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Fingerprint),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "utility", Value: []byte(rec.Utility)},
			{Key: "created_at", Value: []byte(rec.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
