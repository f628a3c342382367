// Package events handles event emission for record lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes record lifecycle events to Kafka
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRecordCreated emits a record created event
func (e *Emitter) EmitRecordCreated(ctx context.Context, record *models.ContactRecord) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordCreated")
	defer span.End()

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	event := &kafka.RecordEvent{
		EventType: string(EventTypeRecordCreated),
		TenantID:  record.TenantID,
		RecordID:  record.ID,
		Data:      data,
	}

	if err := e.producer.PublishRecordEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit record.created event")
		return err
	}

	return nil
}

// EmitRecordUpdated emits a record updated event
func (e *Emitter) EmitRecordUpdated(ctx context.Context, record *models.ContactRecord) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordUpdated")
	defer span.End()

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	event := &kafka.RecordEvent{
		EventType: string(EventTypeRecordUpdated),
		TenantID:  record.TenantID,
		RecordID:  record.ID,
		Data:      data,
	}

	if err := e.producer.PublishRecordEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit record.updated event")
		return err
	}

	return nil
}

// EmitRecordMerged emits a record merged event carrying the audit trail
func (e *Emitter) EmitRecordMerged(ctx context.Context, result *models.MergeResult, sourceIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordMerged")
	defer span.End()

	payload := map[string]any{
		"schema_version": SchemaVersion,
		"strategy":       result.Strategy,
		"audit":          result.Audit,
		"record":         result.Record,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &kafka.RecordEvent{
		EventType:     string(EventTypeRecordMerged),
		TenantID:      result.Record.TenantID,
		RecordID:      result.Record.ID,
		Data:          data,
		SourceRecords: sourceIDs,
	}

	if err := e.producer.PublishRecordEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit record.merged event")
		return err
	}

	return nil
}

// EmitDuplicateDetected emits an event when a duplicate check crosses the
// threshold without auto-merging
func (e *Emitter) EmitDuplicateDetected(ctx context.Context, tenantID string, decision *models.DuplicateDecision, candidateID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDuplicateDetected")
	defer span.End()

	payload := map[string]any{
		"schema_version": SchemaVersion,
		"fingerprint":    decision.Fingerprint,
		"confidence":     decision.BestConfidence(),
		"threshold":      decision.Threshold,
		"candidate_id":   candidateID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &kafka.RecordEvent{
		EventType: string(EventTypeDuplicateDetected),
		TenantID:  tenantID,
		RecordID:  candidateID,
		Data:      data,
	}

	if err := e.producer.PublishRecordEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit duplicate.detected event")
		return err
	}

	return nil
}
