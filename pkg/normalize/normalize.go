// Package normalize provides field normalization functions for match columns
// and comparators.
package normalize

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("nemail", Email)
	Register("nphone", Phone)
	Register("ndomain", Domain)
	Register("nprofile", ProfileURL)
	Register("ncompany", CompanyName)
	Register("digits_only", DigitsOnly)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Email normalizes an email address (lowercase, trim)
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Phone removes all non-digit characters from a phone number
func Phone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Domain extracts a bare domain from an email address or a website URL.
// Emails use the part after the last '@'; URLs drop the scheme, path and
// leading "www.".
func Domain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if at := strings.LastIndex(s, "@"); at >= 0 {
		s = s[at+1:]
	}

	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")

	if slash := strings.Index(s, "/"); slash >= 0 {
		s = s[:slash]
	}
	if colon := strings.Index(s, ":"); colon >= 0 {
		s = s[:colon]
	}

	return strings.TrimPrefix(s, "www.")
}

// ProfileURL canonicalizes a professional profile URL: lowercase, no scheme,
// no "www.", no trailing slash.
func ProfileURL(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")

	return strings.TrimSuffix(s, "/")
}

// companySuffixes are legal-entity tokens dropped from company names. Matched
// on whole words only, so "Corporation" is removed but "corpus" is untouched.
var companySuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"llp":          true,
	"ltd":          true,
	"limited":      true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"gmbh":         true,
	"plc":          true,
}

// CompanyName normalizes a company name for fuzzy matching:
// lowercase, punctuation stripped, legal suffixes removed on word boundaries,
// whitespace collapsed. Applying it twice yields the same result.
func CompanyName(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !companySuffixes[w] {
			kept = append(kept, w)
		}
	}

	// A name made entirely of suffix tokens keeps its words rather than
	// collapsing to an empty key.
	if len(kept) == 0 {
		kept = words
	}

	return strings.Join(kept, " ")
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
