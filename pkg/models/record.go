package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/clover/pkg/normalize"
)

// JSONMap is a map stored in a jsonb column
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("JSONMap.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, m)
}

// ContactRecord is a business contact / lead as stored in the shared CRM store
type ContactRecord struct {
	ID          string     `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	Email       string     `json:"email,omitempty" db:"email"`
	Website     string     `json:"website,omitempty" db:"website"`
	ProfileURL  string     `json:"profile_url,omitempty" db:"profile_url"`
	Phone       string     `json:"phone,omitempty" db:"phone"`
	CompanyName string     `json:"company_name,omitempty" db:"company_name"`
	FirstName   string     `json:"first_name,omitempty" db:"first_name"`
	LastName    string     `json:"last_name,omitempty" db:"last_name"`
	Title       string     `json:"title,omitempty" db:"title"`
	Source      string     `json:"source,omitempty" db:"source"`
	ExternalID  string     `json:"external_id,omitempty" db:"external_id"`
	Enrichment  JSONMap    `json:"enrichment,omitempty" db:"enrichment"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Domain derives the record's domain from its email, falling back to the
// website host.
func (r *ContactRecord) Domain() string {
	if r.Email != "" {
		return normalize.Domain(r.Email)
	}
	if r.Website != "" {
		return normalize.Domain(r.Website)
	}
	return ""
}

// HasIdentifiers reports whether the record carries at least one identifying
// attribute a comparator can act on.
func (r *ContactRecord) HasIdentifiers() bool {
	return r.Email != "" || r.Phone != "" || r.ProfileURL != "" || r.CompanyName != "" || r.Domain() != ""
}

// CreateRecordRequest is the payload to create a contact record
type CreateRecordRequest struct {
	Email       string  `json:"email,omitempty" validate:"omitempty,email"`
	Website     string  `json:"website,omitempty"`
	ProfileURL  string  `json:"profile_url,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	CompanyName string  `json:"company_name,omitempty"`
	FirstName   string  `json:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty"`
	Title       string  `json:"title,omitempty"`
	Source      string  `json:"source,omitempty"`
	ExternalID  string  `json:"external_id,omitempty"`
	Enrichment  JSONMap `json:"enrichment,omitempty"`
}

// ToRecord converts the request into an unsaved ContactRecord
func (req *CreateRecordRequest) ToRecord(tenantID string) *ContactRecord {
	return &ContactRecord{
		TenantID:    tenantID,
		Email:       req.Email,
		Website:     req.Website,
		ProfileURL:  req.ProfileURL,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Title:       req.Title,
		Source:      req.Source,
		ExternalID:  req.ExternalID,
		Enrichment:  req.Enrichment,
	}
}

// RecordListResponse is the paged response for record listings
type RecordListResponse struct {
	Items      []ContactRecord `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}
