package fingerprint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestIdentityIgnoresFormattingNoise(t *testing.T) {
	a := &models.ContactRecord{
		Email:       "Jane.Doe@ACME.com",
		Phone:       "+1 (555) 123-4567",
		ProfileURL:  "https://www.linkedin.com/in/jane-doe/",
		CompanyName: "Acme Corporation",
	}
	b := &models.ContactRecord{
		Email:       "jane.doe@acme.com",
		Phone:       "1-555-123-4567",
		ProfileURL:  "linkedin.com/in/jane-doe",
		CompanyName: "ACME Corp",
	}

	assert.Equal(t, Identity(a), Identity(b))
}

func TestIdentityDistinguishesRecords(t *testing.T) {
	a := &models.ContactRecord{Email: "jane@acme.com"}
	b := &models.ContactRecord{Email: "bob@acme.com"}

	assert.NotEqual(t, Identity(a), Identity(b))
	assert.Len(t, Identity(a), 64)
}

func TestIdentityNilRecord(t *testing.T) {
	assert.Empty(t, Identity(nil))
}

func TestGenerateKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"email": "jane@acme.com", "company": "Acme", "nested": map[string]any{"x": 1, "y": 2}}
	b := map[string]any{"nested": map[string]any{"y": 2, "x": 1}, "company": "Acme", "email": "jane@acme.com"}

	assert.Equal(t, Generate(a), Generate(b))
}

func TestGenerateListOrderMatters(t *testing.T) {
	a := map[string]any{"tags": []any{"a", "b"}}
	b := map[string]any{"tags": []any{"b", "a"}}

	assert.NotEqual(t, Generate(a), Generate(b))
}

func TestGenerateFromJSON(t *testing.T) {
	fromJSON, err := GenerateFromJSON(json.RawMessage(`{"company":"Acme","email":"jane@acme.com"}`))
	require.NoError(t, err)

	direct := Generate(map[string]any{"email": "jane@acme.com", "company": "Acme"})
	assert.Equal(t, direct, fromJSON)

	_, err = GenerateFromJSON(json.RawMessage(`not json`))
	assert.Error(t, err)
}
