package merge

import (
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

var (
	olderTime = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	newerTime = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
)

func TestMergeRecordsUnknownStrategy(t *testing.T) {
	merger := NewMerger()

	result, err := merger.MergeRecords(&models.ContactRecord{}, &models.ContactRecord{}, "collect_all")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, 400, httperror.GetStatusCode(err))
}

func TestMergeRecordsWithEmptyIncoming(t *testing.T) {
	merger := NewMerger()

	existing := &models.ContactRecord{
		ID:          "rec-1",
		TenantID:    "tenant-1",
		Email:       "jane@acme.com",
		Phone:       "5551234567",
		CompanyName: "Acme",
		Enrichment:  models.JSONMap{"industry": "manufacturing"},
		UpdatedAt:   olderTime,
	}

	for _, strategy := range []models.MergeStrategyType{
		models.MergeStrategyMostRecent,
		models.MergeStrategyMostComplete,
		models.MergeStrategyPreferExisting,
		models.MergeStrategyPreferIncoming,
	} {
		t.Run(string(strategy), func(t *testing.T) {
			result, err := merger.MergeRecords(existing, &models.ContactRecord{}, strategy)
			require.NoError(t, err)

			assert.Equal(t, existing.Email, result.Record.Email)
			assert.Equal(t, existing.Phone, result.Record.Phone)
			assert.Equal(t, existing.CompanyName, result.Record.CompanyName)
			assert.Equal(t, existing.Enrichment, result.Record.Enrichment)
			assert.Empty(t, result.Audit)
		})
	}
}

func TestMergeRecordsNoDataLoss(t *testing.T) {
	merger := NewMerger()

	existing := &models.ContactRecord{
		ID:        "rec-1",
		Email:     "jane@acme.com",
		FirstName: "Jane",
		UpdatedAt: olderTime,
	}
	incoming := &models.ContactRecord{
		Phone:     "5551234567",
		LastName:  "Doe",
		Title:     "VP Engineering",
		UpdatedAt: newerTime,
	}

	for _, strategy := range []models.MergeStrategyType{
		models.MergeStrategyMostRecent,
		models.MergeStrategyMostComplete,
		models.MergeStrategyPreferExisting,
		models.MergeStrategyPreferIncoming,
	} {
		t.Run(string(strategy), func(t *testing.T) {
			result, err := merger.MergeRecords(existing, incoming, strategy)
			require.NoError(t, err)

			// every value present on either side survives the merge
			assert.Equal(t, "jane@acme.com", result.Record.Email)
			assert.Equal(t, "Jane", result.Record.FirstName)
			assert.Equal(t, "5551234567", result.Record.Phone)
			assert.Equal(t, "Doe", result.Record.LastName)
			assert.Equal(t, "VP Engineering", result.Record.Title)

			// identity stays with the existing record
			assert.Equal(t, "rec-1", result.Record.ID)

			// one-sided fills are audited as prefer_non_empty
			rules := map[string]string{}
			for _, entry := range result.Audit {
				rules[entry.Field] = entry.Rule
			}
			assert.Equal(t, RulePreferNonEmpty, rules["phone"])
			assert.Equal(t, RulePreferNonEmpty, rules["last_name"])
			assert.Equal(t, RulePreferNonEmpty, rules["title"])
		})
	}
}

func TestMergeRecordsMostRecent(t *testing.T) {
	merger := NewMerger()

	t.Run("newer incoming wins conflicts", func(t *testing.T) {
		existing := &models.ContactRecord{Title: "Engineer", UpdatedAt: olderTime}
		incoming := &models.ContactRecord{Title: "Staff Engineer", UpdatedAt: newerTime}

		result, err := merger.MergeRecords(existing, incoming, models.MergeStrategyMostRecent)
		require.NoError(t, err)

		assert.Equal(t, "Staff Engineer", result.Record.Title)
		require.Len(t, result.Audit, 1)
		assert.Equal(t, "title", result.Audit[0].Field)
		assert.Equal(t, "Engineer", result.Audit[0].Before)
		assert.Equal(t, "Staff Engineer", result.Audit[0].After)
		assert.Equal(t, RuleMostRecent, result.Audit[0].Rule)
	})

	t.Run("newer existing keeps its value", func(t *testing.T) {
		existing := &models.ContactRecord{Title: "Staff Engineer", UpdatedAt: newerTime}
		incoming := &models.ContactRecord{Title: "Engineer", UpdatedAt: olderTime}

		result, err := merger.MergeRecords(existing, incoming, models.MergeStrategyMostRecent)
		require.NoError(t, err)

		assert.Equal(t, "Staff Engineer", result.Record.Title)
		assert.Empty(t, result.Audit)
	})

	t.Run("no recency markers falls back to existing and says so", func(t *testing.T) {
		existing := &models.ContactRecord{Title: "Engineer"}
		incoming := &models.ContactRecord{Title: "Staff Engineer"}

		result, err := merger.MergeRecords(existing, incoming, models.MergeStrategyMostRecent)
		require.NoError(t, err)

		// existing wins, so no field changed and no audit entry is written,
		// but the fallback rule is what resolveScalar reports
		assert.Equal(t, "Engineer", result.Record.Title)
		assert.Empty(t, result.Audit)

		_, rule := resolveScalar("Engineer", "Staff Engineer", models.MergeStrategyMostRecent, time.Time{}, time.Time{})
		assert.Equal(t, RuleMostRecentFallback, rule)
	})
}

func TestMergeRecordsMostComplete(t *testing.T) {
	merger := NewMerger()

	existing := &models.ContactRecord{CompanyName: "Acme", UpdatedAt: olderTime}
	incoming := &models.ContactRecord{CompanyName: "Acme Corporation", UpdatedAt: olderTime}

	result, err := merger.MergeRecords(existing, incoming, models.MergeStrategyMostComplete)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corporation", result.Record.CompanyName)
	require.Len(t, result.Audit, 1)
	assert.Equal(t, RuleMostComplete, result.Audit[0].Rule)
}

func TestMergeRecordsPreferSides(t *testing.T) {
	merger := NewMerger()

	existing := &models.ContactRecord{Title: "Engineer", UpdatedAt: newerTime}
	incoming := &models.ContactRecord{Title: "Manager", UpdatedAt: olderTime}

	t.Run("prefer_existing", func(t *testing.T) {
		result, err := merger.MergeRecords(existing, incoming, models.MergeStrategyPreferExisting)
		require.NoError(t, err)
		assert.Equal(t, "Engineer", result.Record.Title)
		assert.Empty(t, result.Audit)
	})

	t.Run("prefer_incoming", func(t *testing.T) {
		result, err := merger.MergeRecords(existing, incoming, models.MergeStrategyPreferIncoming)
		require.NoError(t, err)
		assert.Equal(t, "Manager", result.Record.Title)
		require.Len(t, result.Audit, 1)
		assert.Equal(t, RulePreferIncoming, result.Audit[0].Rule)
	})
}

func TestMergeEnrichmentDeepMerge(t *testing.T) {
	merger := NewMerger()

	existing := &models.ContactRecord{
		UpdatedAt: olderTime,
		Enrichment: models.JSONMap{
			"firmographics": map[string]any{
				"industry":  "manufacturing",
				"employees": float64(500),
			},
			"tags": []any{"warm", "midmarket"},
		},
	}
	incoming := &models.ContactRecord{
		UpdatedAt: newerTime,
		Enrichment: models.JSONMap{
			"firmographics": map[string]any{
				"employees": float64(650),
				"hq":        "Chicago",
			},
			"tags":     []any{"midmarket", "expansion"},
			"linkedin": "linkedin.com/company/acme",
		},
	}

	result, err := merger.MergeRecords(existing, incoming, models.MergeStrategyMostRecent)
	require.NoError(t, err)

	enrichment := map[string]any(result.Record.Enrichment)
	firmographics := enrichment["firmographics"].(map[string]any)

	// nested maps merge key by key: untouched keys survive, conflicts resolve
	assert.Equal(t, "manufacturing", firmographics["industry"])
	assert.Equal(t, float64(650), firmographics["employees"])
	assert.Equal(t, "Chicago", firmographics["hq"])

	// lists union with de-duplication, existing order first
	assert.Equal(t, []any{"warm", "midmarket", "expansion"}, enrichment["tags"])

	// new top-level keys are added
	assert.Equal(t, "linkedin.com/company/acme", enrichment["linkedin"])

	rules := map[string]string{}
	for _, entry := range result.Audit {
		rules[entry.Field] = entry.Rule
	}
	assert.Equal(t, RuleMostRecent, rules["enrichment.firmographics.employees"])
	assert.Equal(t, RulePreferNonEmpty, rules["enrichment.firmographics.hq"])
	assert.Equal(t, RuleListUnion, rules["enrichment.tags"])
	assert.Equal(t, RulePreferNonEmpty, rules["enrichment.linkedin"])
}

func TestMergeEnrichmentPreferExistingKeepsConflicts(t *testing.T) {
	merger := NewMerger()

	existing := &models.ContactRecord{
		Enrichment: models.JSONMap{"score": float64(80)},
	}
	incoming := &models.ContactRecord{
		Enrichment: models.JSONMap{"score": float64(95)},
	}

	result, err := merger.MergeRecords(existing, incoming, models.MergeStrategyPreferExisting)
	require.NoError(t, err)

	assert.Equal(t, float64(80), result.Record.Enrichment["score"])
	assert.Empty(t, result.Audit)
}

func TestMergeIsIdempotentOnItself(t *testing.T) {
	merger := NewMerger()

	record := &models.ContactRecord{
		Email:       "jane@acme.com",
		CompanyName: "Acme",
		Enrichment:  models.JSONMap{"tags": []any{"warm"}},
		UpdatedAt:   olderTime,
	}

	result, err := merger.MergeRecords(record, record, models.MergeStrategyMostRecent)
	require.NoError(t, err)

	assert.Equal(t, record.Email, result.Record.Email)
	assert.Equal(t, []any{"warm"}, []any(result.Record.Enrichment["tags"].([]any)))
	assert.Empty(t, result.Audit)
}

func TestUnionLists(t *testing.T) {
	tests := []struct {
		name     string
		existing []any
		incoming []any
		expected []any
	}{
		{
			name:     "disjoint lists append",
			existing: []any{"a"},
			incoming: []any{"b"},
			expected: []any{"a", "b"},
		},
		{
			name:     "duplicates collapse",
			existing: []any{"a", "b"},
			incoming: []any{"b", "a"},
			expected: []any{"a", "b"},
		},
		{
			name:     "mixed types keyed by printed value",
			existing: []any{float64(1), "x"},
			incoming: []any{float64(2), "x"},
			expected: []any{float64(1), "x", float64(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, unionLists(tt.existing, tt.incoming))
		})
	}
}
