package dedupe

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestAggregateTakesMaxNotAverage(t *testing.T) {
	incoming := &models.ContactRecord{
		Email:       "jane@acme.com",
		Phone:       "555-123-4567",
		CompanyName: "Acme Corporation",
	}
	candidate := models.ContactRecord{
		ID:          "existing-1",
		Email:       "JANE@ACME.COM",
		Phone:       "+1 (555) 123-4567",
		CompanyName: "Acme Inc",
	}

	match := Aggregate(incoming, candidate)
	require.NotNil(t, match)

	// email (100), phone (70), domain (80) and company (90) all fire; the
	// aggregate is the strongest signal, not a blend
	assert.Equal(t, 100, match.Confidence)
	assert.GreaterOrEqual(t, len(match.Matches), 3)
}

func TestAggregateNoSignals(t *testing.T) {
	incoming := &models.ContactRecord{Email: "jane@acme.com"}
	candidate := models.ContactRecord{ID: "existing-1", Email: "bob@globex.com", Phone: "555-999-0000"}

	assert.Nil(t, Aggregate(incoming, candidate))
}

func TestCheckDuplicatesThreshold(t *testing.T) {
	resolver := NewResolver()
	ctx := context.Background()

	incoming := &models.ContactRecord{Phone: "555-123-4567"}
	candidates := []models.ContactRecord{
		{ID: "existing-1", Phone: "1-555-123-4567"},
	}

	tests := []struct {
		name        string
		threshold   int
		isDuplicate bool
	}{
		{name: "phone confidence meets low threshold", threshold: 70, isDuplicate: true},
		{name: "phone confidence misses default threshold", threshold: DefaultThreshold, isDuplicate: false},
		{name: "zero threshold flags everything with a signal", threshold: 0, isDuplicate: true},
		{name: "max threshold needs exact email", threshold: 100, isDuplicate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := resolver.CheckDuplicates(ctx, incoming, candidates, tt.threshold)
			require.NoError(t, err)

			assert.Equal(t, tt.isDuplicate, decision.IsDuplicate)
			require.Len(t, decision.Candidates, 1)
			assert.Equal(t, 70, decision.Candidates[0].Confidence)
		})
	}
}

func TestCheckDuplicatesThresholdMonotonicity(t *testing.T) {
	resolver := NewResolver()
	ctx := context.Background()

	incoming := &models.ContactRecord{Email: "jane@acme.com", CompanyName: "Acme"}
	candidates := []models.ContactRecord{
		{ID: "existing-1", Email: "jane@acme.com"},
	}

	wasDuplicate := true
	for threshold := 0; threshold <= 100; threshold += 5 {
		decision, err := resolver.CheckDuplicates(ctx, incoming, candidates, threshold)
		require.NoError(t, err)

		// raising the threshold can only flip duplicate -> not duplicate
		if decision.IsDuplicate {
			assert.True(t, wasDuplicate, "decision flipped back to duplicate at threshold %d", threshold)
		}
		wasDuplicate = decision.IsDuplicate
	}
}

func TestCheckDuplicatesInvalidThreshold(t *testing.T) {
	resolver := NewResolver()
	ctx := context.Background()

	for _, threshold := range []int{-1, 101, 500} {
		t.Run(fmt.Sprintf("threshold %d", threshold), func(t *testing.T) {
			decision, err := resolver.CheckDuplicates(ctx, &models.ContactRecord{Email: "a@b.com"}, nil, threshold)
			require.Error(t, err)
			assert.Nil(t, decision)
			assert.True(t, httperror.IsHTTPError(err))
			assert.Equal(t, 400, httperror.GetStatusCode(err))
		})
	}
}

func TestCheckDuplicatesEmptyInputs(t *testing.T) {
	resolver := NewResolver()
	ctx := context.Background()

	t.Run("no candidates", func(t *testing.T) {
		decision, err := resolver.CheckDuplicates(ctx, &models.ContactRecord{Email: "jane@acme.com"}, nil, DefaultThreshold)
		require.NoError(t, err)
		assert.False(t, decision.IsDuplicate)
		assert.Empty(t, decision.Candidates)
	})

	t.Run("incoming with no identifying fields", func(t *testing.T) {
		incoming := &models.ContactRecord{FirstName: "Jane", LastName: "Doe"}
		candidates := []models.ContactRecord{
			{ID: "existing-1", Email: "jane@acme.com"},
		}

		decision, err := resolver.CheckDuplicates(ctx, incoming, candidates, DefaultThreshold)
		require.NoError(t, err)
		assert.False(t, decision.IsDuplicate)
		assert.Empty(t, decision.Candidates)
	})

	t.Run("nil incoming", func(t *testing.T) {
		decision, err := resolver.CheckDuplicates(ctx, nil, []models.ContactRecord{{ID: "x"}}, DefaultThreshold)
		require.NoError(t, err)
		assert.False(t, decision.IsDuplicate)
	})
}

func TestCheckDuplicatesRanking(t *testing.T) {
	resolver := NewResolver()
	ctx := context.Background()

	incoming := &models.ContactRecord{
		Email:       "jane@acme.com",
		Phone:       "555-123-4567",
		CompanyName: "Acme",
	}
	candidates := []models.ContactRecord{
		{ID: "phone-only", Phone: "5551234567"},
		{ID: "email-match", Email: "jane@acme.com"},
		{ID: "no-signal", Email: "bob@globex.com"},
		{ID: "company-only", CompanyName: "Acme Corp"},
	}

	decision, err := resolver.CheckDuplicates(ctx, incoming, candidates, DefaultThreshold)
	require.NoError(t, err)

	require.Len(t, decision.Candidates, 3, "candidates without signals are omitted")
	assert.Equal(t, "email-match", decision.Candidates[0].Record.ID)
	assert.Equal(t, "company-only", decision.Candidates[1].Record.ID)
	assert.Equal(t, "phone-only", decision.Candidates[2].Record.ID)
	assert.True(t, decision.IsDuplicate)
	assert.Equal(t, 100, decision.BestConfidence())
}

func TestCheckDuplicatesTiesBrokenByRecency(t *testing.T) {
	resolver := NewResolver()
	ctx := context.Background()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	incoming := &models.ContactRecord{Email: "jane@acme.com"}
	candidates := []models.ContactRecord{
		{ID: "older", Email: "jane@acme.com", UpdatedAt: older},
		{ID: "newer", Email: "jane@acme.com", UpdatedAt: newer},
	}

	decision, err := resolver.CheckDuplicates(ctx, incoming, candidates, DefaultThreshold)
	require.NoError(t, err)

	require.Len(t, decision.Candidates, 2)
	assert.Equal(t, "newer", decision.Candidates[0].Record.ID)
	assert.Equal(t, "older", decision.Candidates[1].Record.ID)
}

func TestCheckDuplicatesDeterministicOverLargeSets(t *testing.T) {
	resolver := NewResolver()
	ctx := context.Background()

	incoming := &models.ContactRecord{Email: "jane@acme.com", CompanyName: "Acme"}

	// large enough to exercise the worker pool
	candidates := make([]models.ContactRecord, 100)
	for i := range candidates {
		candidates[i] = models.ContactRecord{
			ID:          fmt.Sprintf("candidate-%03d", i),
			CompanyName: "Acme Corp",
		}
	}
	candidates[42].Email = "jane@acme.com"

	first, err := resolver.CheckDuplicates(ctx, incoming, candidates, DefaultThreshold)
	require.NoError(t, err)

	for run := 0; run < 5; run++ {
		again, err := resolver.CheckDuplicates(ctx, incoming, candidates, DefaultThreshold)
		require.NoError(t, err)
		require.Len(t, again.Candidates, len(first.Candidates))

		for i := range first.Candidates {
			assert.Equal(t, first.Candidates[i].Record.ID, again.Candidates[i].Record.ID)
			assert.Equal(t, first.Candidates[i].Confidence, again.Candidates[i].Confidence)
		}
	}

	assert.Equal(t, "candidate-042", first.Candidates[0].Record.ID)
	assert.True(t, first.IsDuplicate)
}
