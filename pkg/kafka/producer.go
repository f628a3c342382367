package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Producer emits record lifecycle events
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// RecordEvent describes a record lifecycle change
type RecordEvent struct {
	EventType     string          `json:"event_type"` // record.created, record.updated, record.merged, duplicate.detected
	TenantID      string          `json:"tenant_id"`
	RecordID      string          `json:"record_id"`
	Data          json.RawMessage `json:"data,omitempty"`
	SourceRecords []string        `json:"source_records,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// PublishRecordEvent publishes a record event to Kafka
func (p *Producer) PublishRecordEvent(ctx context.Context, event *RecordEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRecordEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RecordID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
			{Key: "schema_version", Value: []byte("1.0")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Inc()
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish record event")
		return err
	}

	metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "ok").Inc()
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"record_id":  event.RecordID,
	}).Debug("Published record event")

	return nil
}

// PublishRecordEvents publishes multiple record events in a batch
func (p *Producer) PublishRecordEvents(ctx context.Context, events []*RecordEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRecordEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		messages[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.RecordID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "tenant_id", Value: []byte(event.TenantID)},
				{Key: "schema_version", Value: []byte("1.0")},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Add(float64(len(events)))
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish record events batch")
		return err
	}

	metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "ok").Add(float64(len(events)))
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published record events batch")

	return nil
}
