package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with its parsed payload
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Lead *models.LeadMessage
}

// ParseLead decodes the message value as a lead envelope. The parsed lead is
// cached on the message.
func (m *IncomingMessage) ParseLead() (*models.LeadMessage, error) {
	if m.Lead != nil {
		return m.Lead, nil
	}

	var lead models.LeadMessage
	if err := json.Unmarshal(m.Value, &lead); err != nil {
		return nil, fmt.Errorf("failed to parse lead message: %w", err)
	}

	if lead.ReceivedAt.IsZero() {
		lead.ReceivedAt = m.Timestamp
	}

	m.Lead = &lead
	return m.Lead, nil
}

// SourceIntegration returns the integration name for metrics labels, falling
// back to the header when the payload has not been parsed.
func (m *IncomingMessage) SourceIntegration() string {
	if m.Lead != nil && m.Lead.Source.Integration != "" {
		return m.Lead.Source.Integration
	}
	if integration, ok := m.Headers["integration"]; ok {
		return integration
	}
	return "unknown"
}
