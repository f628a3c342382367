package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

type stubIngestor struct {
	outcome string
	err     error
	calls   int
	last    *models.LeadMessage
}

func (s *stubIngestor) Ingest(_ context.Context, lead *models.LeadMessage) (string, error) {
	s.calls++
	s.last = lead
	return s.outcome, s.err
}

func newTestProcessor(ingestor *stubIngestor) *Processor {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewProcessor(logger, ingestor)
}

func TestHandleMessageIngestsValidLead(t *testing.T) {
	ingestor := &stubIngestor{outcome: "created"}
	p := newTestProcessor(ingestor)

	msg := &kafka.IncomingMessage{
		Topic: "leads",
		Value: []byte(`{"source":{"tenant_id":"tenant-1","integration":"crm_sync"},"contact":{"email":"jane@acme.com"}}`),
	}

	err := p.HandleMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, 1, ingestor.calls)
	assert.Equal(t, "tenant-1", ingestor.last.Source.TenantID)
	assert.Equal(t, "jane@acme.com", ingestor.last.Contact.Email)
}

func TestHandleMessageSkipsMalformedPayload(t *testing.T) {
	ingestor := &stubIngestor{}
	p := newTestProcessor(ingestor)

	msg := &kafka.IncomingMessage{Topic: "leads", Value: []byte(`not json`)}

	// malformed messages commit (nil) so the partition never sticks
	err := p.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Zero(t, ingestor.calls)
}

func TestHandleMessageSkipsLeadWithoutIdentifiers(t *testing.T) {
	ingestor := &stubIngestor{}
	p := newTestProcessor(ingestor)

	tests := []struct {
		name  string
		value string
	}{
		{
			name:  "missing tenant",
			value: `{"source":{"integration":"crm_sync"},"contact":{"email":"jane@acme.com"}}`,
		},
		{
			name:  "no identifying fields",
			value: `{"source":{"tenant_id":"tenant-1","integration":"crm_sync"},"contact":{"first_name":"Jane"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &kafka.IncomingMessage{Topic: "leads", Value: []byte(tt.value)}

			err := p.HandleMessage(context.Background(), msg)
			require.NoError(t, err)
			assert.Zero(t, ingestor.calls)
		})
	}
}

func TestHandleMessagePropagatesIngestErrors(t *testing.T) {
	ingestor := &stubIngestor{err: errors.New("db unavailable")}
	p := newTestProcessor(ingestor)

	msg := &kafka.IncomingMessage{
		Topic: "leads",
		Value: []byte(`{"source":{"tenant_id":"tenant-1","integration":"crm_sync"},"contact":{"email":"jane@acme.com"}}`),
	}

	// infra errors must not commit, so the message is redelivered
	err := p.HandleMessage(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, 1, ingestor.calls)
}
