// Package kafka publishes session view records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/vtec-browser/internal/config"
	"github.com/couchcryptid/vtec-browser/internal/domain"
	"github.com/couchcryptid/vtec-browser/internal/observability"
)

// Writer produces view records to a Kafka topic.
// It implements session.Publisher.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured view-record topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Publish serializes and writes one view record. Records for the same event
// share a key and so land on the same partition.
func (w *Writer) Publish(ctx context.Context, rec domain.ViewRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write view record: %w", err)
	}
	w.metrics.ViewRecordsPublished.Inc()
	w.logger.Debug("view record published", "vtec", rec.ID.String(), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ViewRecord into a Kafka message keyed by the
// canonical identifier.
func serializeToMessage(rec domain.ViewRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize view record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "phenomena", Value: []byte(rec.ID.Phenomenon)},
			{Key: "viewed_at", Value: []byte(rec.ViewedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
