package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/dedupe"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/merge"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Exercises the full duplicate check and merge pipeline against an in-memory
// candidate set, the same path the ingest service walks per message.

func storedRecord(email, phone, company string, updatedAt time.Time) models.ContactRecord {
	return models.ContactRecord{
		ID:          uuid.New().String(),
		TenantID:    "tenant-1",
		Email:       email,
		Phone:       phone,
		CompanyName: company,
		UpdatedAt:   updatedAt,
	}
}

func TestDedupeMergePipeline(t *testing.T) {
	ctx := context.Background()
	resolver := dedupe.NewResolver()
	merger := merge.NewMerger()

	now := time.Now().UTC()
	existing := storedRecord("Jordan.Reyes@Acme.com", "+1 (555) 010-2030", "Acme Corp", now.Add(-48*time.Hour))
	existing.FirstName = "Jordan"
	existing.Title = "VP Sales"

	unrelated := storedRecord("pat@othercorp.io", "", "Other Corp", now.Add(-time.Hour))
	candidates := []models.ContactRecord{existing, unrelated}

	incoming := &models.ContactRecord{
		TenantID:    "tenant-1",
		Email:       "JORDAN.REYES@ACME.COM",
		CompanyName: "ACME Corporation",
		LastName:    "Reyes",
		Title:       "VP of Sales",
		UpdatedAt:   now,
	}

	decision, err := resolver.CheckDuplicates(ctx, incoming, candidates, 85)
	require.NoError(t, err)

	require.True(t, decision.IsDuplicate)
	require.NotEmpty(t, decision.Candidates)
	assert.Equal(t, existing.ID, decision.Candidates[0].Record.ID)
	assert.Equal(t, 100, decision.BestConfidence())

	result, err := merger.MergeRecords(&existing, incoming, models.MergeStrategyMostRecent)
	require.NoError(t, err)

	merged := result.Record
	assert.Equal(t, existing.ID, merged.ID)
	assert.Equal(t, "JORDAN.REYES@ACME.COM", merged.Email)
	assert.Equal(t, "Jordan", merged.FirstName)
	assert.Equal(t, "Reyes", merged.LastName)
	assert.Equal(t, "VP of Sales", merged.Title)
	assert.Equal(t, "+1 (555) 010-2030", merged.Phone)
	assert.NotEmpty(t, result.Audit)
}

func TestDedupePipeline_ThresholdRouting(t *testing.T) {
	ctx := context.Background()
	resolver := dedupe.NewResolver()
	now := time.Now().UTC()

	existing := storedRecord("", "+15550102030", "Northwind Traders", now)
	candidates := []models.ContactRecord{existing}

	incoming := &models.ContactRecord{
		TenantID: "tenant-1",
		Phone:    "555-010-2030",
	}

	tests := []struct {
		name        string
		threshold   int
		isDuplicate bool
	}{
		{name: "phone signal below strict threshold", threshold: 85, isDuplicate: false},
		{name: "phone signal above relaxed threshold", threshold: 60, isDuplicate: true},
		{name: "zero threshold flags any signal", threshold: 0, isDuplicate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := resolver.CheckDuplicates(ctx, incoming, candidates, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.isDuplicate, decision.IsDuplicate)
			assert.Equal(t, tt.threshold, decision.Threshold)
		})
	}
}

func TestDedupePipeline_NoSignalNoMatch(t *testing.T) {
	ctx := context.Background()
	resolver := dedupe.NewResolver()

	existing := storedRecord("casey@initech.com", "", "Initech", time.Now().UTC())
	incoming := &models.ContactRecord{
		TenantID:  "tenant-1",
		FirstName: "Casey",
		LastName:  "Nguyen",
	}

	decision, err := resolver.CheckDuplicates(ctx, incoming, []models.ContactRecord{existing}, 0)
	require.NoError(t, err)
	assert.False(t, decision.IsDuplicate)
	assert.Empty(t, decision.Candidates)
}

func TestPipeline_FingerprintStableAcrossFormatting(t *testing.T) {
	a := &models.ContactRecord{Email: "Jordan.Reyes@Acme.com", Phone: "+1 (555) 010-2030", CompanyName: "Acme, Inc."}
	b := &models.ContactRecord{Email: "jordan.reyes@acme.com", Phone: "15550102030", CompanyName: "acme inc"}

	assert.Equal(t, fingerprint.Identity(a), fingerprint.Identity(b))
}

func TestPipeline_MergePreservesEnrichment(t *testing.T) {
	merger := merge.NewMerger()
	now := time.Now().UTC()

	existing := storedRecord("dana@globex.com", "", "Globex", now.Add(-time.Hour))
	existing.Enrichment = models.JSONMap{
		"tags": []any{"inbound"},
		"firmographics": map[string]any{
			"employees": float64(120),
		},
	}

	incoming := &models.ContactRecord{
		TenantID:  "tenant-1",
		Email:     "dana@globex.com",
		UpdatedAt: now,
		Enrichment: models.JSONMap{
			"tags": []any{"enriched"},
			"firmographics": map[string]any{
				"hq": "Springfield",
			},
		},
	}

	result, err := merger.MergeRecords(&existing, incoming, models.MergeStrategyMostComplete)
	require.NoError(t, err)

	enrichment := result.Record.Enrichment
	assert.ElementsMatch(t, []any{"inbound", "enriched"}, enrichment["tags"])

	firmo, ok := enrichment["firmographics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(120), firmo["employees"])
	assert.Equal(t, "Springfield", firmo["hq"])
}

func BenchmarkDuplicateCheck(b *testing.B) {
	ctx := context.Background()
	resolver := dedupe.NewResolver()
	now := time.Now().UTC()

	candidates := make([]models.ContactRecord, 200)
	for i := range candidates {
		candidates[i] = storedRecord(uuid.New().String()+"@example.com", "", "Example Co", now)
	}
	candidates[137] = storedRecord("target@example.com", "", "Example Co", now)

	incoming := &models.ContactRecord{
		TenantID: "tenant-1",
		Email:    "target@example.com",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = resolver.CheckDuplicates(ctx, incoming, candidates, 85)
	}
}
