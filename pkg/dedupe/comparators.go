package dedupe

import (
	"fmt"
	"math"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
)

// Comparator inspects one identifying attribute on both records. It returns a
// FieldMatch when the attribute matches, and nil when either side is missing
// the attribute or the values do not match. Comparators never error.
type Comparator func(incoming, existing *models.ContactRecord) *models.FieldMatch

// Confidence levels per identifying field. Signals are alternatives, not
// additive: the aggregator takes the max, never a sum or average.
const (
	ConfidenceEmail      = 100
	ConfidenceProfileURL = 95
	ConfidenceDomain     = 80
	ConfidencePhone      = 70

	// Company-name similarity maps linearly onto this confidence band
	ConfidenceCompanyMin = 60
	ConfidenceCompanyMax = 90
)

// DefaultCompanySimilarityFloor is the similarity below which company names
// are considered unrelated.
const DefaultCompanySimilarityFloor = 0.5

var (
	comparatorNames []string
	comparators     = make(map[string]Comparator)
)

func init() {
	RegisterComparator("email", CompareEmail)
	RegisterComparator("profile_url", CompareProfileURL)
	RegisterComparator("domain", CompareDomain)
	RegisterComparator("phone", ComparePhone)
	RegisterComparator("company_name", CompanyComparator(DefaultCompanySimilarityFloor))
}

// RegisterComparator adds a comparator to the registry. Registration order is
// preserved so aggregation is deterministic.
func RegisterComparator(name string, fn Comparator) {
	if _, ok := comparators[name]; !ok {
		comparatorNames = append(comparatorNames, name)
	}
	comparators[name] = fn
}

// GetComparator retrieves a comparator by name
func GetComparator(name string) (Comparator, bool) {
	fn, ok := comparators[name]
	return fn, ok
}

// Comparators returns all registered comparators in registration order
func Comparators() []Comparator {
	result := make([]Comparator, 0, len(comparatorNames))
	for _, name := range comparatorNames {
		result = append(result, comparators[name])
	}
	return result
}

// CompareEmail matches on case-insensitive email equality. Similar local
// parts get no partial credit.
func CompareEmail(incoming, existing *models.ContactRecord) *models.FieldMatch {
	a := normalize.Email(incoming.Email)
	b := normalize.Email(existing.Email)
	if a == "" || b == "" {
		return nil
	}
	if a != b {
		return nil
	}

	return &models.FieldMatch{
		Field:      "email",
		Confidence: ConfidenceEmail,
		Reason:     "exact email match",
	}
}

// CompareProfileURL matches on canonicalized profile URL equality
func CompareProfileURL(incoming, existing *models.ContactRecord) *models.FieldMatch {
	a := normalize.ProfileURL(incoming.ProfileURL)
	b := normalize.ProfileURL(existing.ProfileURL)
	if a == "" || b == "" {
		return nil
	}
	if a != b {
		return nil
	}

	return &models.FieldMatch{
		Field:      "profile_url",
		Confidence: ConfidenceProfileURL,
		Reason:     "profile url match",
	}
}

// CompareDomain matches on the domain derived from email or website
func CompareDomain(incoming, existing *models.ContactRecord) *models.FieldMatch {
	a := incoming.Domain()
	b := existing.Domain()
	if a == "" || b == "" {
		return nil
	}
	if a != b {
		return nil
	}

	return &models.FieldMatch{
		Field:      "domain",
		Confidence: ConfidenceDomain,
		Reason:     fmt.Sprintf("shared domain %s", a),
	}
}

// ComparePhone matches on digit-only phone equality. One side carrying a
// single leading "1" country code still matches (US/Canada numbers only;
// other country codes are out of scope).
func ComparePhone(incoming, existing *models.ContactRecord) *models.FieldMatch {
	a := normalize.Phone(incoming.Phone)
	b := normalize.Phone(existing.Phone)
	if a == "" || b == "" {
		return nil
	}

	if a == b {
		return &models.FieldMatch{
			Field:      "phone",
			Confidence: ConfidencePhone,
			Reason:     "exact phone match",
		}
	}

	if a == "1"+b || b == "1"+a {
		return &models.FieldMatch{
			Field:      "phone",
			Confidence: ConfidencePhone,
			Reason:     "phone match ignoring leading country code",
		}
	}

	return nil
}

// CompanyComparator builds a fuzzy company-name comparator with the given
// similarity floor. Similarity in [floor, 1.0] maps linearly onto
// [ConfidenceCompanyMin, ConfidenceCompanyMax]; anything below the floor
// abstains.
func CompanyComparator(floor float64) Comparator {
	scorer := NewScorer()

	return func(incoming, existing *models.ContactRecord) *models.FieldMatch {
		a := normalize.CompanyName(incoming.CompanyName)
		b := normalize.CompanyName(existing.CompanyName)
		if a == "" || b == "" {
			return nil
		}

		similarity := scorer.Levenshtein(a, b)
		if similarity < floor {
			return nil
		}

		span := float64(ConfidenceCompanyMax - ConfidenceCompanyMin)
		confidence := ConfidenceCompanyMin + int(math.Round((similarity-floor)/(1.0-floor)*span))

		return &models.FieldMatch{
			Field:      "company_name",
			Confidence: confidence,
			Reason:     fmt.Sprintf("company name similarity %.2f", similarity),
		}
	}
}
