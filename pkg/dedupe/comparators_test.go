package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func record(mutate func(*models.ContactRecord)) *models.ContactRecord {
	r := &models.ContactRecord{}
	mutate(r)
	return r
}

func TestCompareEmail(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		existing string
		matches  bool
	}{
		{name: "exact match", incoming: "jane@acme.com", existing: "jane@acme.com", matches: true},
		{name: "case insensitive", incoming: "Jane.Doe@ACME.com", existing: "jane.doe@acme.com", matches: true},
		{name: "whitespace trimmed", incoming: " jane@acme.com ", existing: "jane@acme.com", matches: true},
		{name: "different local part no partial credit", incoming: "jane.d@acme.com", existing: "jane@acme.com", matches: false},
		{name: "incoming missing", incoming: "", existing: "jane@acme.com", matches: false},
		{name: "existing missing", incoming: "jane@acme.com", existing: "", matches: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incoming := record(func(r *models.ContactRecord) { r.Email = tt.incoming })
			existing := record(func(r *models.ContactRecord) { r.Email = tt.existing })

			match := CompareEmail(incoming, existing)
			if !tt.matches {
				assert.Nil(t, match)
				return
			}

			require.NotNil(t, match)
			assert.Equal(t, "email", match.Field)
			assert.Equal(t, ConfidenceEmail, match.Confidence)
		})
	}
}

func TestComparePhone(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		existing string
		matches  bool
	}{
		{name: "exact digits", incoming: "5551234567", existing: "5551234567", matches: true},
		{name: "formatting ignored", incoming: "(555) 123-4567", existing: "555-123-4567", matches: true},
		{name: "leading country code on incoming", incoming: "+1-555-123-4567", existing: "(555) 123-4567", matches: true},
		{name: "leading country code on existing", incoming: "555-123-4567", existing: "1 555 123 4567", matches: true},
		{name: "different numbers", incoming: "555-1234", existing: "555-9999", matches: false},
		{name: "only single leading one is recognized", incoming: "44-555-123-4567", existing: "555-123-4567", matches: false},
		{name: "missing side", incoming: "", existing: "5551234567", matches: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incoming := record(func(r *models.ContactRecord) { r.Phone = tt.incoming })
			existing := record(func(r *models.ContactRecord) { r.Phone = tt.existing })

			match := ComparePhone(incoming, existing)
			if !tt.matches {
				assert.Nil(t, match)
				return
			}

			require.NotNil(t, match)
			assert.Equal(t, "phone", match.Field)
			assert.Equal(t, ConfidencePhone, match.Confidence)
		})
	}
}

func TestCompareDomain(t *testing.T) {
	t.Run("email domain matches website host", func(t *testing.T) {
		incoming := record(func(r *models.ContactRecord) { r.Email = "jane@acme.com" })
		existing := record(func(r *models.ContactRecord) { r.Website = "https://www.acme.com/contact" })

		match := CompareDomain(incoming, existing)
		require.NotNil(t, match)
		assert.Equal(t, "domain", match.Field)
		assert.Equal(t, ConfidenceDomain, match.Confidence)
	})

	t.Run("different domains", func(t *testing.T) {
		incoming := record(func(r *models.ContactRecord) { r.Email = "jane@acme.com" })
		existing := record(func(r *models.ContactRecord) { r.Website = "globex.com" })

		assert.Nil(t, CompareDomain(incoming, existing))
	})

	t.Run("no domain on either side", func(t *testing.T) {
		incoming := record(func(r *models.ContactRecord) { r.Phone = "5551234567" })
		existing := record(func(r *models.ContactRecord) { r.Phone = "5551234567" })

		assert.Nil(t, CompareDomain(incoming, existing))
	})
}

func TestCompareProfileURL(t *testing.T) {
	t.Run("scheme www and trailing slash ignored", func(t *testing.T) {
		incoming := record(func(r *models.ContactRecord) { r.ProfileURL = "https://www.linkedin.com/in/jane-doe/" })
		existing := record(func(r *models.ContactRecord) { r.ProfileURL = "linkedin.com/in/jane-doe" })

		match := CompareProfileURL(incoming, existing)
		require.NotNil(t, match)
		assert.Equal(t, ConfidenceProfileURL, match.Confidence)
	})

	t.Run("different profiles", func(t *testing.T) {
		incoming := record(func(r *models.ContactRecord) { r.ProfileURL = "linkedin.com/in/jane-doe" })
		existing := record(func(r *models.ContactRecord) { r.ProfileURL = "linkedin.com/in/john-doe" })

		assert.Nil(t, CompareProfileURL(incoming, existing))
	})
}

func TestCompanyComparator(t *testing.T) {
	compare := CompanyComparator(DefaultCompanySimilarityFloor)

	t.Run("legal suffixes normalize to the same name", func(t *testing.T) {
		variants := []string{"Acme Corporation", "ACME Corp", "Acme, Inc."}

		for _, a := range variants {
			for _, b := range variants {
				incoming := record(func(r *models.ContactRecord) { r.CompanyName = a })
				existing := record(func(r *models.ContactRecord) { r.CompanyName = b })

				match := compare(incoming, existing)
				require.NotNil(t, match, "%q vs %q", a, b)
				assert.Equal(t, ConfidenceCompanyMax, match.Confidence, "%q vs %q", a, b)
			}
		}
	})

	t.Run("confidence stays in band", func(t *testing.T) {
		incoming := record(func(r *models.ContactRecord) { r.CompanyName = "Stark Industries" })
		existing := record(func(r *models.ContactRecord) { r.CompanyName = "Stark Industreis" })

		match := compare(incoming, existing)
		require.NotNil(t, match)
		assert.GreaterOrEqual(t, match.Confidence, ConfidenceCompanyMin)
		assert.LessOrEqual(t, match.Confidence, ConfidenceCompanyMax)
	})

	t.Run("below similarity floor abstains", func(t *testing.T) {
		incoming := record(func(r *models.ContactRecord) { r.CompanyName = "Acme" })
		existing := record(func(r *models.ContactRecord) { r.CompanyName = "Globex Megacorp Holdings" })

		assert.Nil(t, compare(incoming, existing))
	})

	t.Run("missing side abstains", func(t *testing.T) {
		incoming := record(func(r *models.ContactRecord) { r.CompanyName = "" })
		existing := record(func(r *models.ContactRecord) { r.CompanyName = "Acme" })

		assert.Nil(t, compare(incoming, existing))
	})
}

func TestScorerLevenshtein(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{name: "identical", a: "acme", b: "acme", expected: 1.0},
		{name: "empty sides", a: "", b: "acme", expected: 0.0},
		{name: "one edit in four", a: "acme", b: "acmo", expected: 0.75},
		{name: "disjoint", a: "abc", b: "xyz", expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Levenshtein(tt.a, tt.b), 0.0001)
		})
	}
}
