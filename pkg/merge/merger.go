// Package merge implements the conflict-resolving record merger. The merger
// is pure: it never loses data, never touches storage and reports every field
// change through the audit trail.
package merge

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Merge rule identifiers recorded on audit entries
const (
	RulePreferNonEmpty = "prefer_non_empty"
	RuleMostRecent     = "most_recent"
	RuleMostComplete   = "most_complete"
	RulePreferExisting = "prefer_existing"
	RulePreferIncoming = "prefer_incoming"
	RuleListUnion      = "list_union"

	// RuleMostRecentFallback is recorded when most_recent is asked to break a
	// conflict but neither side carries a recency marker.
	RuleMostRecentFallback = "most_recent:fallback_prefer_existing"
)

// scalarField maps a named record attribute to its accessor pair
type scalarField struct {
	name string
	get  func(*models.ContactRecord) string
	set  func(*models.ContactRecord, string)
}

var scalarFields = []scalarField{
	{"email", func(r *models.ContactRecord) string { return r.Email }, func(r *models.ContactRecord, v string) { r.Email = v }},
	{"website", func(r *models.ContactRecord) string { return r.Website }, func(r *models.ContactRecord, v string) { r.Website = v }},
	{"profile_url", func(r *models.ContactRecord) string { return r.ProfileURL }, func(r *models.ContactRecord, v string) { r.ProfileURL = v }},
	{"phone", func(r *models.ContactRecord) string { return r.Phone }, func(r *models.ContactRecord, v string) { r.Phone = v }},
	{"company_name", func(r *models.ContactRecord) string { return r.CompanyName }, func(r *models.ContactRecord, v string) { r.CompanyName = v }},
	{"first_name", func(r *models.ContactRecord) string { return r.FirstName }, func(r *models.ContactRecord, v string) { r.FirstName = v }},
	{"last_name", func(r *models.ContactRecord) string { return r.LastName }, func(r *models.ContactRecord, v string) { r.LastName = v }},
	{"title", func(r *models.ContactRecord) string { return r.Title }, func(r *models.ContactRecord, v string) { r.Title = v }},
	{"source", func(r *models.ContactRecord) string { return r.Source }, func(r *models.ContactRecord, v string) { r.Source = v }},
	{"external_id", func(r *models.ContactRecord) string { return r.ExternalID }, func(r *models.ContactRecord, v string) { r.ExternalID = v }},
}

// Merger merges an incoming record into an existing one under a single
// conflict-resolution strategy.
type Merger struct{}

func NewMerger() *Merger {
	return &Merger{}
}

// MergeRecords merges incoming into existing. The result keeps the existing
// record's identity (ID, tenant, created_at); every field non-empty in either
// input is non-empty in the result. Merging an empty incoming record returns
// the existing record unchanged with an empty audit trail.
func (m *Merger) MergeRecords(existing, incoming *models.ContactRecord, strategy models.MergeStrategyType) (*models.MergeResult, error) {
	if !strategy.IsValid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown merge strategy %q", strategy))
	}
	if existing == nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "existing record is required")
	}

	merged := *existing
	audit := []models.AuditEntry{}

	result := &models.MergeResult{
		Record:   &merged,
		Audit:    audit,
		Strategy: strategy,
	}

	if incoming == nil {
		return result, nil
	}

	for _, field := range scalarFields {
		existingValue := field.get(existing)
		incomingValue := field.get(incoming)

		if incomingValue == "" || existingValue == incomingValue {
			continue
		}

		if existingValue == "" {
			field.set(&merged, incomingValue)
			audit = append(audit, models.AuditEntry{
				Field:  field.name,
				Before: nil,
				After:  incomingValue,
				Rule:   RulePreferNonEmpty,
			})
			continue
		}

		winner, rule := resolveScalar(existingValue, incomingValue, strategy, existing.UpdatedAt, incoming.UpdatedAt)
		if winner == existingValue {
			continue
		}

		field.set(&merged, winner)
		audit = append(audit, models.AuditEntry{
			Field:  field.name,
			Before: existingValue,
			After:  winner,
			Rule:   rule,
		})
	}

	merged.Enrichment, audit = mergeEnrichment(existing, incoming, strategy, audit)

	result.Audit = audit
	return result, nil
}

// resolveScalar breaks a conflict between two non-empty values and names the
// rule that decided it.
func resolveScalar(existingValue, incomingValue string, strategy models.MergeStrategyType, existingUpdated, incomingUpdated time.Time) (string, string) {
	switch strategy {
	case models.MergeStrategyMostRecent:
		return resolveMostRecent(existingValue, incomingValue, existingUpdated, incomingUpdated)

	case models.MergeStrategyMostComplete:
		if len(incomingValue) > len(existingValue) {
			return incomingValue, RuleMostComplete
		}
		if len(existingValue) > len(incomingValue) {
			return existingValue, RuleMostComplete
		}
		// same length, different content: completeness cannot decide
		return resolveMostRecent(existingValue, incomingValue, existingUpdated, incomingUpdated)

	case models.MergeStrategyPreferIncoming:
		return incomingValue, RulePreferIncoming

	default: // prefer_existing
		return existingValue, RulePreferExisting
	}
}

func resolveMostRecent(existingValue, incomingValue string, existingUpdated, incomingUpdated time.Time) (string, string) {
	if existingUpdated.IsZero() && incomingUpdated.IsZero() {
		return existingValue, RuleMostRecentFallback
	}
	if incomingUpdated.After(existingUpdated) {
		return incomingValue, RuleMostRecent
	}
	return existingValue, RuleMostRecent
}
