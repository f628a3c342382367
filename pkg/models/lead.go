package models

import "time"

// LeadSource identifies where an ingested lead came from
type LeadSource struct {
	TenantID    string `json:"tenant_id"`
	Integration string `json:"integration"` // csv_import, enrichment_api, crm_sync, ...
	ExternalID  string `json:"external_id,omitempty"`
}

// LeadContact carries the identifying attributes of an ingested lead
type LeadContact struct {
	Email       string `json:"email,omitempty"`
	Website     string `json:"website,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Title       string `json:"title,omitempty"`
}

// LeadMessage is the envelope sources publish to the lead-ingest topic
type LeadMessage struct {
	Source     LeadSource     `json:"source"`
	Contact    LeadContact    `json:"contact"`
	Enrichment map[string]any `json:"enrichment,omitempty"`
	ReceivedAt time.Time      `json:"received_at,omitempty"`
}

// ToRecord converts the lead into an unsaved ContactRecord
func (m *LeadMessage) ToRecord() *ContactRecord {
	return &ContactRecord{
		TenantID:    m.Source.TenantID,
		Email:       m.Contact.Email,
		Website:     m.Contact.Website,
		ProfileURL:  m.Contact.ProfileURL,
		Phone:       m.Contact.Phone,
		CompanyName: m.Contact.CompanyName,
		FirstName:   m.Contact.FirstName,
		LastName:    m.Contact.LastName,
		Title:       m.Contact.Title,
		Source:      m.Source.Integration,
		ExternalID:  m.Source.ExternalID,
		Enrichment:  JSONMap(m.Enrichment),
	}
}

// IsValid reports whether the envelope carries enough to process
func (m *LeadMessage) IsValid() bool {
	if m.Source.TenantID == "" {
		return false
	}
	record := m.ToRecord()
	return record.HasIdentifiers()
}
