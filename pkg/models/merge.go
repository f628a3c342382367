package models

import (
	"encoding/json"
	"time"
)

// MergeStrategyType defines how field conflicts are resolved during a merge
type MergeStrategyType string

const (
	// MergeStrategyMostRecent resolves conflicts toward the side updated last
	MergeStrategyMostRecent MergeStrategyType = "most_recent"
	// MergeStrategyMostComplete resolves conflicts toward the fuller value
	MergeStrategyMostComplete MergeStrategyType = "most_complete"
	// MergeStrategyPreferExisting resolves conflicts toward the stored record
	MergeStrategyPreferExisting MergeStrategyType = "prefer_existing"
	// MergeStrategyPreferIncoming resolves conflicts toward the incoming record
	MergeStrategyPreferIncoming MergeStrategyType = "prefer_incoming"
)

// IsValid reports whether the strategy is one of the supported types
func (s MergeStrategyType) IsValid() bool {
	switch s {
	case MergeStrategyMostRecent, MergeStrategyMostComplete, MergeStrategyPreferExisting, MergeStrategyPreferIncoming:
		return true
	}
	return false
}

// AuditEntry records one field whose merged value differs from the existing
// record's original value.
type AuditEntry struct {
	Field  string `json:"field"`
	Before any    `json:"before"`
	After  any    `json:"after"`
	Rule   string `json:"rule"`
}

// MergeResult is the outcome of merging an incoming record into an existing one
type MergeResult struct {
	Record   *ContactRecord    `json:"record"`
	Audit    []AuditEntry      `json:"audit"`
	Strategy MergeStrategyType `json:"strategy"`
}

// MergeAuditLog is the persisted audit row written after a merge
type MergeAuditLog struct {
	ID             string          `json:"id" db:"id"`
	TenantID       string          `json:"tenant_id" db:"tenant_id"`
	RecordID       string          `json:"record_id" db:"record_id"`
	SourceRecordID *string         `json:"source_record_id,omitempty" db:"source_record_id"`
	OldData        json.RawMessage `json:"old_data" db:"old_data"`
	NewData        json.RawMessage `json:"new_data" db:"new_data"`
	Strategy       string          `json:"strategy" db:"strategy"`
	Audit          json.RawMessage `json:"audit,omitempty" db:"audit"`
	PerformedBy    *string         `json:"performed_by,omitempty" db:"performed_by"`
	PerformedAt    time.Time       `json:"performed_at" db:"performed_at"`
}

// MergeRequest is the HTTP payload for merging into a record. Either Record
// (an inline incoming payload) or SourceRecordID (another stored record) must
// be set.
type MergeRequest struct {
	Record         *CreateRecordRequest `json:"record,omitempty"`
	SourceRecordID string               `json:"source_record_id,omitempty"`
	Strategy       MergeStrategyType    `json:"strategy" validate:"required"`
}
