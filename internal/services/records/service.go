// Package records orchestrates the record lifecycle: ingest, duplicate
// handling, merges, the review queue and the audit trail.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/graph"
	"github.com/Ramsey-B/clover/internal/repositories/auditlog"
	"github.com/Ramsey-B/clover/internal/repositories/mergecandidate"
	"github.com/Ramsey-B/clover/internal/repositories/record"
	dedupesvc "github.com/Ramsey-B/clover/internal/services/dedupe"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/merge"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Ingest outcomes
const (
	OutcomeCreated    = "created"
	OutcomeAutoMerged = "auto_merged"
	OutcomeQueued     = "queued_for_review"
)

// Config tunes ingest behavior
type Config struct {
	// AutoMergeThreshold is the confidence at which ingest merges without
	// human review.
	AutoMergeThreshold int
	// DefaultStrategy resolves conflicts for automatic and review merges
	// unless the caller picks one.
	DefaultStrategy models.MergeStrategyType
}

// Service owns the contact record lifecycle
type Service struct {
	logger        ectologger.Logger
	recordRepo    *record.Repository
	candidateRepo *mergecandidate.Repository
	auditRepo     *auditlog.Repository
	lineage       *graph.LineageStore
	emitter       *events.Emitter
	dedupe        *dedupesvc.Service
	merger        *merge.Merger
	cfg           Config
}

// NewService creates a new records service. The lineage store and emitter are
// optional; a nil value disables that side effect.
func NewService(
	logger ectologger.Logger,
	recordRepo *record.Repository,
	candidateRepo *mergecandidate.Repository,
	auditRepo *auditlog.Repository,
	lineage *graph.LineageStore,
	emitter *events.Emitter,
	dedupe *dedupesvc.Service,
	merger *merge.Merger,
	cfg Config,
) *Service {
	if cfg.AutoMergeThreshold == 0 {
		cfg.AutoMergeThreshold = 95
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = models.MergeStrategyMostRecent
	}
	return &Service{
		logger:        logger,
		recordRepo:    recordRepo,
		candidateRepo: candidateRepo,
		auditRepo:     auditRepo,
		lineage:       lineage,
		emitter:       emitter,
		dedupe:        dedupe,
		merger:        merger,
		cfg:           cfg,
	}
}

// Create stores a new record. A duplicate at or above the check threshold is
// rejected with a conflict so the caller can route through the merge endpoint.
func (s *Service) Create(ctx context.Context, tenantID string, req *models.CreateRecordRequest) (*models.ContactRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.Create")
	defer span.End()

	incoming := req.ToRecord(tenantID)
	if !incoming.HasIdentifiers() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "record must carry at least one identifying field")
	}

	decision, err := s.dedupe.CheckDuplicates(ctx, tenantID, incoming, s.dedupe.DefaultThreshold(), false)
	if err != nil {
		return nil, err
	}
	if decision.IsDuplicate {
		top := decision.Candidates[0]
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "duplicate of record %s (confidence %d)", top.Record.ID, top.Confidence)
	}

	created, err := s.recordRepo.Create(ctx, incoming)
	if err != nil {
		return nil, err
	}

	s.dedupe.InvalidateDecision(ctx, tenantID, created)
	s.emitCreated(ctx, created)
	return created, nil
}

// Get retrieves a record by ID
func (s *Service) Get(ctx context.Context, tenantID string, id string) (*models.ContactRecord, error) {
	return s.recordRepo.Get(ctx, tenantID, id)
}

// List retrieves a page of records
func (s *Service) List(ctx context.Context, tenantID string, page, pageSize int) (*models.RecordListResponse, error) {
	return s.recordRepo.List(ctx, tenantID, page, pageSize)
}

// Delete soft-deletes a record
func (s *Service) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "records.Service.Delete")
	defer span.End()

	existing, err := s.recordRepo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.recordRepo.SoftDelete(ctx, tenantID, id); err != nil {
		return err
	}

	s.dedupe.InvalidateDecision(ctx, tenantID, existing)
	return nil
}

// Ingest routes an incoming lead: strong matches merge automatically,
// borderline matches queue for review, everything else creates a record.
func (s *Service) Ingest(ctx context.Context, lead *models.LeadMessage) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.Ingest")
	defer span.End()

	incoming := lead.ToRecord()
	tenantID := incoming.TenantID

	decision, err := s.dedupe.CheckDuplicates(ctx, tenantID, incoming, s.dedupe.DefaultThreshold(), false)
	if err != nil {
		return "", err
	}

	if !decision.IsDuplicate {
		created, err := s.recordRepo.Create(ctx, incoming)
		if err != nil {
			return "", err
		}
		s.dedupe.InvalidateDecision(ctx, tenantID, created)
		s.emitCreated(ctx, created)
		return OutcomeCreated, nil
	}

	top := decision.Candidates[0]
	if top.Confidence >= s.cfg.AutoMergeThreshold {
		if _, err := s.mergeInto(ctx, &top.Record, incoming, s.cfg.DefaultStrategy, "auto", top.Confidence, nil, nil); err != nil {
			return "", err
		}
		return OutcomeAutoMerged, nil
	}

	candidate, err := s.candidateRepo.Create(ctx, &models.CreateMergeCandidateRequest{
		TenantID:   tenantID,
		RecordID:   top.Record.ID,
		Incoming:   incoming,
		Confidence: top.Confidence,
		Evidence:   top.Matches,
		Source:     incoming.Source,
	})
	if err != nil {
		return "", err
	}

	if s.emitter != nil {
		if err := s.emitter.EmitDuplicateDetected(ctx, tenantID, decision, candidate.ID); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit duplicate.detected event")
		}
	}

	s.refreshQueueDepth(ctx, tenantID)
	return OutcomeQueued, nil
}

// Merge merges an inline payload or another stored record into the target.
// Merging a stored source soft-deletes it and records the lineage edge.
func (s *Service) Merge(ctx context.Context, tenantID string, targetID string, req *models.MergeRequest, performedBy *string) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.Merge")
	defer span.End()

	if (req.Record == nil) == (req.SourceRecordID == "") {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "exactly one of record or source_record_id is required")
	}
	if req.SourceRecordID == targetID {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "cannot merge a record into itself")
	}

	target, err := s.recordRepo.Get(ctx, tenantID, targetID)
	if err != nil {
		return nil, err
	}

	var incoming *models.ContactRecord
	var sourceID *string
	if req.Record != nil {
		incoming = req.Record.ToRecord(tenantID)
	} else {
		source, err := s.recordRepo.Get(ctx, tenantID, req.SourceRecordID)
		if err != nil {
			return nil, err
		}
		incoming = source
		sourceID = &source.ID
	}

	ctx, tx, err := s.recordRepo.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	result, err := s.mergeInto(ctx, target, incoming, req.Strategy, "manual", 0, sourceID, performedBy)
	if err != nil {
		return nil, err
	}

	if sourceID != nil {
		if err := s.recordRepo.SoftDelete(ctx, tenantID, *sourceID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit merge")
	}

	return result, nil
}

// ApproveCandidate merges a queued review item into its matched record
func (s *Service) ApproveCandidate(ctx context.Context, tenantID string, candidateID string, strategy models.MergeStrategyType, resolvedBy *string) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.ApproveCandidate")
	defer span.End()

	candidate, err := s.candidateRepo.Get(ctx, tenantID, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate.Status != models.MergeCandidateStatusPending {
		return nil, httperror.NewHTTPError(http.StatusConflict, "merge candidate is already resolved")
	}

	incoming, err := candidate.IncomingRecord()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode stored incoming record")
	}

	target, err := s.recordRepo.Get(ctx, tenantID, candidate.RecordID)
	if err != nil {
		return nil, err
	}

	if strategy == "" {
		strategy = s.cfg.DefaultStrategy
	}

	ctx, tx, err := s.recordRepo.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	result, err := s.mergeInto(ctx, target, incoming, strategy, "review", candidate.Confidence, nil, resolvedBy)
	if err != nil {
		return nil, err
	}

	if err := s.candidateRepo.UpdateStatusByID(ctx, tenantID, candidateID, models.MergeCandidateStatusApproved, resolvedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit approval")
	}

	s.refreshQueueDepth(ctx, tenantID)
	return result, nil
}

// RejectCandidate dismisses a queued review item without merging
func (s *Service) RejectCandidate(ctx context.Context, tenantID string, candidateID string, resolvedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "records.Service.RejectCandidate")
	defer span.End()

	if err := s.candidateRepo.UpdateStatusByID(ctx, tenantID, candidateID, models.MergeCandidateStatusRejected, resolvedBy); err != nil {
		return err
	}

	s.refreshQueueDepth(ctx, tenantID)
	return nil
}

// ListReviewQueue retrieves a page of pending merge candidates
func (s *Service) ListReviewQueue(ctx context.Context, tenantID string, page, pageSize int) (*models.MergeCandidateListResponse, error) {
	return s.candidateRepo.ListPending(ctx, tenantID, page, pageSize)
}

// GetAuditHistory retrieves the merge audit trail for a record
func (s *Service) GetAuditHistory(ctx context.Context, tenantID string, recordID string, limit int) ([]models.MergeAuditLog, error) {
	return s.auditRepo.ListByRecord(ctx, tenantID, recordID, limit)
}

// GetLineage retrieves the merge ancestry of a record from the graph store
func (s *Service) GetLineage(ctx context.Context, tenantID string, recordID string) ([]graph.MergeEdge, error) {
	if s.lineage == nil {
		return nil, nil
	}
	return s.lineage.Ancestors(ctx, tenantID, recordID)
}

// mergeInto performs the merge and all its side effects: persistence, the
// audit row, the lineage edge, cache invalidation and the merged event.
func (s *Service) mergeInto(ctx context.Context, existing, incoming *models.ContactRecord, strategy models.MergeStrategyType, trigger string, confidence int, sourceID *string, performedBy *string) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.mergeInto")
	defer span.End()

	oldData, err := json.Marshal(existing)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to snapshot existing record")
	}

	result, err := s.merger.MergeRecords(existing, incoming, strategy)
	if err != nil {
		return nil, err
	}

	newData, err := json.Marshal(result.Record)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to snapshot merged record")
	}
	auditData, err := json.Marshal(result.Audit)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode merge audit trail")
	}

	// The record rewrite and its audit row land together or not at all.
	ctx, tx, err := s.recordRepo.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := s.recordRepo.Update(ctx, result.Record); err != nil {
		return nil, err
	}

	if _, err := s.auditRepo.Create(ctx, &models.MergeAuditLog{
		TenantID:       existing.TenantID,
		RecordID:       existing.ID,
		SourceRecordID: sourceID,
		OldData:        oldData,
		NewData:        newData,
		Strategy:       string(strategy),
		Audit:          auditData,
		PerformedBy:    performedBy,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit merge")
	}

	if s.lineage != nil && sourceID != nil {
		edge := graph.MergeEdge{
			SourceID:   *sourceID,
			TargetID:   existing.ID,
			Strategy:   string(strategy),
			Confidence: confidence,
			MergedAt:   time.Now().UTC(),
		}
		if err := s.lineage.RecordMerge(ctx, existing.TenantID, edge); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to record merge lineage")
		}
	}

	metrics.RecordMerge(existing.TenantID, string(strategy), trigger, len(result.Audit))

	s.dedupe.InvalidateDecision(ctx, existing.TenantID, existing)
	s.dedupe.InvalidateDecision(ctx, existing.TenantID, incoming)
	s.dedupe.InvalidateDecision(ctx, existing.TenantID, result.Record)

	if s.emitter != nil {
		var sourceIDs []string
		if sourceID != nil {
			sourceIDs = []string{*sourceID}
		}
		if err := s.emitter.EmitRecordMerged(ctx, result, sourceIDs); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit record.merged event")
		}
	}

	return result, nil
}

func (s *Service) emitCreated(ctx context.Context, record *models.ContactRecord) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitRecordCreated(ctx, record); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit record.created event")
	}
}

func (s *Service) refreshQueueDepth(ctx context.Context, tenantID string) {
	depth, err := s.candidateRepo.CountPending(ctx, tenantID)
	if err != nil {
		return
	}
	metrics.ReviewQueueDepth.Set(float64(depth))
}
