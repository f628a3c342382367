package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases", input: "John.Doe@Example.COM", expected: "john.doe@example.com"},
		{name: "trims whitespace", input: "  jane@acme.com  ", expected: "jane@acme.com"},
		{name: "already normalized", input: "bob@corp.io", expected: "bob@corp.io"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Email(tt.input))
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "strips formatting", input: "(555) 123-4567", expected: "5551234567"},
		{name: "strips plus and dashes", input: "+1-555-123-4567", expected: "15551234567"},
		{name: "digits pass through", input: "5551234567", expected: "5551234567"},
		{name: "letters dropped", input: "555-CALL-NOW", expected: "555"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Phone(tt.input))
		})
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "from email", input: "jane@Acme.COM", expected: "acme.com"},
		{name: "from https url", input: "https://www.acme.com/about", expected: "acme.com"},
		{name: "from http url", input: "http://acme.com", expected: "acme.com"},
		{name: "bare domain", input: "acme.com", expected: "acme.com"},
		{name: "strips port", input: "acme.com:8080", expected: "acme.com"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Domain(tt.input))
		})
	}
}

func TestProfileURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "strips scheme and www", input: "https://www.linkedin.com/in/jane-doe", expected: "linkedin.com/in/jane-doe"},
		{name: "strips trailing slash", input: "linkedin.com/in/jane-doe/", expected: "linkedin.com/in/jane-doe"},
		{name: "lowercases", input: "LinkedIn.com/in/Jane-Doe", expected: "linkedin.com/in/jane-doe"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProfileURL(tt.input))
		})
	}
}

func TestCompanyName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "strips corporation suffix", input: "Acme Corporation", expected: "acme"},
		{name: "strips corp suffix", input: "ACME Corp", expected: "acme"},
		{name: "strips inc with punctuation", input: "Acme, Inc.", expected: "acme"},
		{name: "strips llc", input: "Globex LLC", expected: "globex"},
		{name: "whole words only", input: "Incorporated Holdings", expected: "holdings"},
		{name: "suffix token inside word untouched", input: "Costco Wholesale", expected: "costco wholesale"},
		{name: "all suffix tokens keep words", input: "Company Inc", expected: "company inc"},
		{name: "collapses whitespace", input: "  Stark   Industries  ", expected: "stark industries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompanyName(tt.input))
		})
	}
}

func TestCompanyNameIdempotent(t *testing.T) {
	inputs := []string{"Acme Corporation", "ACME Corp", "Acme, Inc.", "Stark Industries LLC", "Globex"}

	for _, input := range inputs {
		once := CompanyName(input)
		assert.Equal(t, once, CompanyName(once), "normalizing twice must equal normalizing once for %q", input)
	}
}

func TestApplyChain(t *testing.T) {
	result := ApplyChain("  John.Doe@Example.COM  ", "trim", "nemail")
	assert.Equal(t, "john.doe@example.com", result)
}

func TestApplyUnknownNormalizerPassesThrough(t *testing.T) {
	assert.Equal(t, "Value", Apply("Value", "does-not-exist"))
}
