// Package mergecandidate persists the human review queue for merges the
// resolver was not confident enough to perform automatically.
package mergecandidate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var candidateColumns = []string{
	"id", "tenant_id", "record_id", "incoming_fingerprint", "incoming_data", "confidence",
	"evidence", "status", "source", "created_at", "updated_at", "resolved_at", "resolved_by",
}

// Repository handles merge candidate persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new merge candidate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create enqueues a review item for the matched record. Re-sighting the same
// incoming payload for the same record refreshes the existing row's evidence
// instead of adding a second queue entry.
func (r *Repository) Create(ctx context.Context, req *models.CreateMergeCandidateRequest) (*models.MergeCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "mergecandidate.Repository.Create")
	defer span.End()

	incomingData, err := json.Marshal(req.Incoming)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "failed to encode incoming record")
	}
	evidence, err := json.Marshal(req.Evidence)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "failed to encode match evidence")
	}

	now := time.Now().UTC()
	fp := fingerprint.Identity(req.Incoming)

	ib := database.NewInsertBuilder().InsertInto("merge_candidates")
	ib = ib.Cols("id", "tenant_id", "record_id", "incoming_fingerprint", "incoming_data", "confidence", "evidence", "status", "source", "created_at", "updated_at")
	ib = ib.Values(uuid.New().String(), req.TenantID, req.RecordID, fp, incomingData, req.Confidence, evidence, models.MergeCandidateStatusPending, req.Source, now, now)
	ib.OnConflict([]string{"tenant_id", "record_id", "incoming_fingerprint"},
		fmt.Sprintf("confidence = %s", database.Excluded("confidence")),
		fmt.Sprintf("evidence = %s", database.Excluded("evidence")),
		fmt.Sprintf("updated_at = %s", database.Excluded("updated_at")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": req.RecordID}).Error("Failed to create merge candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create merge candidate")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From("merge_candidates")
	sb.Where(
		sb.Equal("tenant_id", req.TenantID),
		sb.Equal("record_id", req.RecordID),
		sb.Equal("incoming_fingerprint", fp),
	)

	query, args = sb.Build()
	var candidate models.MergeCandidate
	if err := r.db.GetContext(ctx, &candidate, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load merge candidate after upsert")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create merge candidate")
	}

	return &candidate, nil
}

// Get retrieves a merge candidate by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.MergeCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "mergecandidate.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From("merge_candidates")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var candidate models.MergeCandidate
	if err := r.db.GetContext(ctx, &candidate, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("merge candidate %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get merge candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge candidate")
	}

	return &candidate, nil
}

// ListPending retrieves a page of pending candidates, strongest matches first
func (r *Repository) ListPending(ctx context.Context, tenantID string, page, pageSize int) (*models.MergeCandidateListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "mergecandidate.Repository.ListPending")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("merge_candidates")
	countSb.Where(
		countSb.Equal("tenant_id", tenantID),
		countSb.Equal("status", models.MergeCandidateStatusPending),
	)

	query, args := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count pending merge candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list merge candidates")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From("merge_candidates")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.MergeCandidateStatusPending),
	)
	sb.OrderBy("confidence DESC", "created_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var candidates []models.MergeCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending merge candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list merge candidates")
	}

	return &models.MergeCandidateListResponse{
		Items:      candidates,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// CountPending returns the review queue depth for a tenant
func (r *Repository) CountPending(ctx context.Context, tenantID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "mergecandidate.Repository.CountPending")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("merge_candidates")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.MergeCandidateStatusPending),
	)

	query, args := sb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count pending merge candidates")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count merge candidates")
	}

	return total, nil
}

// UpdateStatusByID resolves a pending candidate. Only pending candidates can
// transition, so approving an already rejected item reports not found.
func (r *Repository) UpdateStatusByID(ctx context.Context, tenantID string, id string, status string, resolvedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "mergecandidate.Repository.UpdateStatusByID")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("merge_candidates")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", now),
		sb.Assign("resolved_by", resolvedBy),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.MergeCandidateStatusPending),
	)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	query, args := sb.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update merge candidate status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update merge candidate status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pending merge candidate %s not found", id))
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	return nil
}
