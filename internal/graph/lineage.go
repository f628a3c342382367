package graph

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// LineageStore records which records merged into which, so a record's full
// provenance survives even after sources are soft-deleted in Postgres.
type LineageStore struct {
	client *Client
	logger ectologger.Logger
}

// NewLineageStore creates a lineage store over the graph client
func NewLineageStore(client *Client, logger ectologger.Logger) *LineageStore {
	return &LineageStore{
		client: client,
		logger: logger,
	}
}

// MergeEdge describes one merge event in a record's lineage
type MergeEdge struct {
	SourceID   string    `json:"source_id"`
	TargetID   string    `json:"target_id"`
	Strategy   string    `json:"strategy"`
	Confidence int       `json:"confidence"`
	MergedAt   time.Time `json:"merged_at"`
}

// RecordMerge writes a MERGED_INTO edge from the source record to the
// surviving record. Nodes are created on demand.
func (s *LineageStore) RecordMerge(ctx context.Context, tenantID string, edge MergeEdge) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LineageStore.RecordMerge")
	defer span.End()

	cypher := `
		MERGE (source:Record {id: $source_id, tenant_id: $tenant_id})
		MERGE (target:Record {id: $target_id, tenant_id: $tenant_id})
		MERGE (source)-[m:MERGED_INTO]->(target)
		SET m.strategy = $strategy,
		    m.confidence = $confidence,
		    m.merged_at = $merged_at
	`
	params := map[string]any{
		"tenant_id":  tenantID,
		"source_id":  edge.SourceID,
		"target_id":  edge.TargetID,
		"strategy":   edge.Strategy,
		"confidence": edge.Confidence,
		"merged_at":  edge.MergedAt.UTC().Format(time.RFC3339),
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_id": edge.SourceID,
			"target_id": edge.TargetID,
		}).Error("Failed to record merge lineage")
		return err
	}

	return nil
}

// Ancestors returns every record that merged into the given record,
// directly or transitively.
func (s *LineageStore) Ancestors(ctx context.Context, tenantID string, recordID string) ([]MergeEdge, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.LineageStore.Ancestors")
	defer span.End()

	cypher := `
		MATCH (source:Record {tenant_id: $tenant_id})-[m:MERGED_INTO*1..]->(target:Record {id: $record_id, tenant_id: $tenant_id})
		UNWIND m AS edge
		WITH DISTINCT edge, startNode(edge) AS from, endNode(edge) AS to
		RETURN from.id AS source_id, to.id AS target_id, edge.strategy AS strategy,
		       edge.confidence AS confidence, edge.merged_at AS merged_at
	`
	params := map[string]any{
		"tenant_id": tenantID,
		"record_id": recordID,
	}

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		var edges []MergeEdge
		for res.Next(ctx) {
			record := res.Record()
			edge := MergeEdge{}
			if v, ok := record.Get("source_id"); ok {
				edge.SourceID, _ = v.(string)
			}
			if v, ok := record.Get("target_id"); ok {
				edge.TargetID, _ = v.(string)
			}
			if v, ok := record.Get("strategy"); ok {
				edge.Strategy, _ = v.(string)
			}
			if v, ok := record.Get("confidence"); ok {
				if n, ok := v.(int64); ok {
					edge.Confidence = int(n)
				}
			}
			if v, ok := record.Get("merged_at"); ok {
				if raw, ok := v.(string); ok {
					edge.MergedAt, _ = time.Parse(time.RFC3339, raw)
				}
			}
			edges = append(edges, edge)
		}
		return edges, res.Err()
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": recordID}).Error("Failed to load merge lineage")
		return nil, err
	}

	edges, _ := result.([]MergeEdge)
	return edges, nil
}
