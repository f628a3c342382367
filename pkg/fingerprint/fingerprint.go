// Package fingerprint produces deterministic identifiers for record payloads.
// Fingerprints key the duplicate-decision cache, so two payloads that
// normalize to the same identifying information must hash identically.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
)

// Identity hashes the normalized identifying fields of a record. Formatting
// noise (casing, phone punctuation, URL schemes, legal suffixes) does not
// change the identity.
func Identity(record *models.ContactRecord) string {
	if record == nil {
		return ""
	}

	parts := []string{
		"email=" + normalize.Email(record.Email),
		"domain=" + record.Domain(),
		"profile=" + normalize.ProfileURL(record.ProfileURL),
		"phone=" + normalize.Phone(record.Phone),
		"company=" + normalize.CompanyName(record.CompanyName),
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

// Generate hashes the canonical form of an arbitrary payload. Key order in
// the input never affects the result.
func Generate(data map[string]any) string {
	var b strings.Builder
	canonicalize(&b, data)

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// GenerateFromJSON hashes raw JSON after canonicalization
func GenerateFromJSON(data json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return "", err
	}
	return Generate(m), nil
}

func canonicalize(b *strings.Builder, data any) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteByte(':')
			canonicalize(b, v[k])
		}
		b.WriteByte('}')

	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			canonicalize(b, item)
		}
		b.WriteByte(']')

	default:
		itemJSON, _ := json.Marshal(v)
		b.Write(itemJSON)
	}
}
