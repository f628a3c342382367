package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// mergeEnrichment deep-merges the opaque enrichment payloads under the same
// strategy as the scalar fields.
func mergeEnrichment(existing, incoming *models.ContactRecord, strategy models.MergeStrategyType, audit []models.AuditEntry) (models.JSONMap, []models.AuditEntry) {
	if len(incoming.Enrichment) == 0 {
		return existing.Enrichment, audit
	}
	if len(existing.Enrichment) == 0 {
		audit = append(audit, models.AuditEntry{
			Field:  "enrichment",
			Before: nil,
			After:  map[string]any(incoming.Enrichment),
			Rule:   RulePreferNonEmpty,
		})
		return incoming.Enrichment, audit
	}

	merged, audit := mergeMaps("enrichment", existing.Enrichment, incoming.Enrichment, strategy, existing.UpdatedAt, incoming.UpdatedAt, audit)
	return models.JSONMap(merged), audit
}

// mergeMaps merges incoming into existing key by key. Nested maps recurse,
// lists union with de-duplication, scalar conflicts resolve per strategy.
// Keys present only in existing always survive.
func mergeMaps(path string, existing, incoming map[string]any, strategy models.MergeStrategyType, existingUpdated, incomingUpdated time.Time, audit []models.AuditEntry) (map[string]any, []models.AuditEntry) {
	result := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		result[k] = v
	}

	// sorted keys keep the audit trail deterministic
	keys := make([]string, 0, len(incoming))
	for k := range incoming {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		incomingValue := incoming[key]
		if incomingValue == nil {
			continue
		}

		childPath := path + "." + key
		existingValue, present := result[key]

		if !present || isEmpty(existingValue) {
			result[key] = incomingValue
			audit = append(audit, models.AuditEntry{
				Field:  childPath,
				Before: nil,
				After:  incomingValue,
				Rule:   RulePreferNonEmpty,
			})
			continue
		}

		if existingMap, ok := existingValue.(map[string]any); ok {
			if incomingMap, ok := incomingValue.(map[string]any); ok {
				result[key], audit = mergeMaps(childPath, existingMap, incomingMap, strategy, existingUpdated, incomingUpdated, audit)
				continue
			}
		}

		if existingList, ok := existingValue.([]any); ok {
			if incomingList, ok := incomingValue.([]any); ok {
				union := unionLists(existingList, incomingList)
				if len(union) != len(existingList) {
					audit = append(audit, models.AuditEntry{
						Field:  childPath,
						Before: existingList,
						After:  union,
						Rule:   RuleListUnion,
					})
				}
				result[key] = union
				continue
			}
		}

		if fmt.Sprintf("%v", existingValue) == fmt.Sprintf("%v", incomingValue) {
			continue
		}

		winner, rule := resolveValue(existingValue, incomingValue, strategy, existingUpdated, incomingUpdated)
		if fmt.Sprintf("%v", winner) == fmt.Sprintf("%v", existingValue) {
			continue
		}

		result[key] = winner
		audit = append(audit, models.AuditEntry{
			Field:  childPath,
			Before: existingValue,
			After:  winner,
			Rule:   rule,
		})
	}

	return result, audit
}

// resolveValue breaks a conflict between two non-empty payload values
func resolveValue(existingValue, incomingValue any, strategy models.MergeStrategyType, existingUpdated, incomingUpdated time.Time) (any, string) {
	switch strategy {
	case models.MergeStrategyMostRecent:
		return resolveMostRecentValue(existingValue, incomingValue, existingUpdated, incomingUpdated)

	case models.MergeStrategyMostComplete:
		existingStr, existingIsStr := existingValue.(string)
		incomingStr, incomingIsStr := incomingValue.(string)
		if existingIsStr && incomingIsStr {
			if len(incomingStr) > len(existingStr) {
				return incomingValue, RuleMostComplete
			}
			return existingValue, RuleMostComplete
		}
		// completeness is undefined for non-string conflicts
		return resolveMostRecentValue(existingValue, incomingValue, existingUpdated, incomingUpdated)

	case models.MergeStrategyPreferIncoming:
		return incomingValue, RulePreferIncoming

	default: // prefer_existing
		return existingValue, RulePreferExisting
	}
}

func resolveMostRecentValue(existingValue, incomingValue any, existingUpdated, incomingUpdated time.Time) (any, string) {
	if existingUpdated.IsZero() && incomingUpdated.IsZero() {
		return existingValue, RuleMostRecentFallback
	}
	if incomingUpdated.After(existingUpdated) {
		return incomingValue, RuleMostRecent
	}
	return existingValue, RuleMostRecent
}

// unionLists appends incoming items not already present, keyed on printed
// value identity.
func unionLists(existing, incoming []any) []any {
	result := make([]any, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))

	for _, v := range existing {
		key := fmt.Sprintf("%v", v)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, v)
	}
	for _, v := range incoming {
		key := fmt.Sprintf("%v", v)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, v)
	}

	return result
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
