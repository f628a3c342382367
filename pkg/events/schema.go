package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeRecordCreated EventType = "record.created"
	EventTypeRecordUpdated EventType = "record.updated"
	EventTypeRecordMerged  EventType = "record.merged"

	EventTypeDuplicateDetected EventType = "duplicate.detected"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// RecordCreatedEvent is emitted when a new contact record is stored
type RecordCreatedEvent struct {
	BaseEvent
	RecordID string          `json:"record_id"`
	Data     json.RawMessage `json:"data"`
	Source   string          `json:"source,omitempty"`
}

// RecordUpdatedEvent is emitted when a contact record changes outside a merge
type RecordUpdatedEvent struct {
	BaseEvent
	RecordID      string          `json:"record_id"`
	Data          json.RawMessage `json:"data"`
	OldData       json.RawMessage `json:"old_data,omitempty"`
	ChangedFields []string        `json:"changed_fields,omitempty"`
}

// RecordMergedEvent is emitted when an incoming record merges into a survivor
type RecordMergedEvent struct {
	BaseEvent
	RecordID      string          `json:"record_id"`
	SourceRecords []string        `json:"source_records,omitempty"`
	Strategy      string          `json:"strategy"`
	Data          json.RawMessage `json:"data"`
	Audit         json.RawMessage `json:"audit,omitempty"`
}

// DuplicateDetectedEvent is emitted when a duplicate check crosses the
// threshold without an automatic merge
type DuplicateDetectedEvent struct {
	BaseEvent
	RecordID    string `json:"record_id"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Confidence  int    `json:"confidence"`
	Threshold   int    `json:"threshold"`
	CandidateID string `json:"candidate_id,omitempty"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
