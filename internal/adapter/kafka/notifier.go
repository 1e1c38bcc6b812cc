package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/qartod-export/internal/config"
	"github.com/couchcryptid/qartod-export/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const eventExportCompleted = "export_completed"

// Notifier publishes completed exports to a Kafka topic.
// It implements export.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{writer: w, logger: logger}
}

// Notify publishes one export_completed message keyed by reference designator,
// so every export of an instrument lands on the same partition in order.
func (n *Notifier) Notify(ctx context.Context, rec domain.ExportRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish export %s: %w", rec.ID, err)
	}
	n.logger.Debug("export published", "refdes", rec.ID, "topic", n.writer.Topic)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals an ExportRecord into a Kafka message.
func serializeToMessage(rec domain.ExportRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize export record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventExportCompleted)},
			{Key: "sensor_type", Value: []byte(rec.SensorType)},
			{Key: "exported_at", Value: []byte(rec.ExportedAt.Format(time.RFC3339))},
		},
	}, nil
}
