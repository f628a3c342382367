// Package processor bridges the Kafka consumer and the records service. It
// decides what is worth retrying: malformed payloads are logged and skipped,
// infrastructure failures propagate so the message is redelivered.
package processor

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Ingestor routes an incoming lead into the record store
type Ingestor interface {
	Ingest(ctx context.Context, lead *models.LeadMessage) (string, error)
}

// Processor handles lead messages from the ingest topic
type Processor struct {
	logger   ectologger.Logger
	ingestor Ingestor
}

// NewProcessor creates a new lead processor
func NewProcessor(logger ectologger.Logger, ingestor Ingestor) *Processor {
	return &Processor{
		logger:   logger,
		ingestor: ingestor,
	}
}

// HandleMessage processes one lead message. A nil return commits the message;
// an error leaves it uncommitted for redelivery.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	lead, err := msg.ParseLead()
	if err != nil {
		// Malformed payloads never become valid on retry
		log.WithError(err).Error("Skipping malformed lead message")
		metrics.RecordIngestMessage(msg.SourceIntegration(), "malformed")
		return nil
	}

	if !lead.IsValid() {
		log.WithFields(map[string]any{
			"tenant_id":   lead.Source.TenantID,
			"integration": lead.Source.Integration,
		}).Error("Skipping lead without tenant or identifying fields")
		metrics.RecordIngestMessage(msg.SourceIntegration(), "invalid")
		return nil
	}

	outcome, err := p.ingestor.Ingest(ctx, lead)
	if err != nil {
		log.WithError(err).Error("Failed to ingest lead")
		metrics.RecordIngestMessage(msg.SourceIntegration(), "error")
		return err
	}

	metrics.RecordIngestMessage(msg.SourceIntegration(), outcome)
	log.WithFields(map[string]any{
		"tenant_id": lead.Source.TenantID,
		"outcome":   outcome,
	}).Debug("Processed lead message")

	return nil
}
