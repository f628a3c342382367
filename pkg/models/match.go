package models

import (
	"encoding/json"
	"time"
)

// FieldMatch is a single comparator signal between two records. Never
// persisted; it lives inside decisions and candidate evidence.
type FieldMatch struct {
	Field      string `json:"field"`
	Confidence int    `json:"confidence"` // 0-100
	Reason     string `json:"reason,omitempty"`
}

// MatchCandidate pairs an existing record with the comparator signals it
// produced against an incoming record. Confidence is the max of the signals.
type MatchCandidate struct {
	Record     ContactRecord `json:"record"`
	Matches    []FieldMatch  `json:"matches"`
	Confidence int           `json:"confidence"`
}

// DuplicateDecision is the outcome of a duplicate check: the full ranked
// candidate list plus the threshold verdict.
type DuplicateDecision struct {
	Fingerprint string           `json:"fingerprint"`
	Candidates  []MatchCandidate `json:"candidates"`
	IsDuplicate bool             `json:"is_duplicate"`
	Threshold   int              `json:"threshold"`
	CheckedAt   time.Time        `json:"checked_at"`
}

// BestConfidence returns the confidence of the top ranked candidate, or 0
func (d *DuplicateDecision) BestConfidence() int {
	if len(d.Candidates) == 0 {
		return 0
	}
	return d.Candidates[0].Confidence
}

// MergeCandidate statuses
const (
	MergeCandidateStatusPending    = "pending"
	MergeCandidateStatusApproved   = "approved"
	MergeCandidateStatusRejected   = "rejected"
	MergeCandidateStatusAutoMerged = "auto_merged"
)

// MergeCandidate is a review-queue row: an incoming record that matched an
// existing one above the review floor but below the auto-merge threshold.
type MergeCandidate struct {
	ID                  string          `json:"id" db:"id"`
	TenantID            string          `json:"tenant_id" db:"tenant_id"`
	RecordID            string          `json:"record_id" db:"record_id"`
	IncomingFingerprint string          `json:"incoming_fingerprint" db:"incoming_fingerprint"`
	IncomingData        json.RawMessage `json:"incoming_data" db:"incoming_data"`
	Confidence          int             `json:"confidence" db:"confidence"`
	Evidence            json.RawMessage `json:"evidence,omitempty" db:"evidence"`
	Status              string          `json:"status" db:"status"`
	Source              string          `json:"source,omitempty" db:"source"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
	ResolvedAt          *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy          *string         `json:"resolved_by,omitempty" db:"resolved_by"`
}

// IncomingRecord unmarshals the stored incoming snapshot
func (mc *MergeCandidate) IncomingRecord() (*ContactRecord, error) {
	var record ContactRecord
	if err := json.Unmarshal(mc.IncomingData, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateMergeCandidateRequest is used internally to enqueue a review item
type CreateMergeCandidateRequest struct {
	TenantID   string         `json:"tenant_id" validate:"required"`
	RecordID   string         `json:"record_id" validate:"required"`
	Incoming   *ContactRecord `json:"incoming" validate:"required"`
	Confidence int            `json:"confidence" validate:"min=0,max=100"`
	Evidence   []FieldMatch   `json:"evidence,omitempty"`
	Source     string         `json:"source,omitempty"`
}

// MergeCandidateListResponse is the paged response for the review queue
type MergeCandidateListResponse struct {
	Items      []MergeCandidate `json:"items"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// CheckDuplicatesRequest is the HTTP payload for an ad-hoc duplicate check
type CheckDuplicatesRequest struct {
	Record    CreateRecordRequest `json:"record" validate:"required"`
	Threshold *int                `json:"threshold,omitempty" validate:"omitempty,min=0,max=100"`
}
