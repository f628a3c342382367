// Package auditlog persists the per-merge audit trail: the before and after
// snapshots plus every field-level resolution the merger recorded.
package auditlog

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var auditColumns = []string{
	"id", "tenant_id", "record_id", "source_record_id", "old_data", "new_data",
	"strategy", "audit", "performed_by", "performed_at",
}

// Repository handles merge audit log persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new audit log repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit log entry for a completed merge
func (r *Repository) Create(ctx context.Context, entry *models.MergeAuditLog) (*models.MergeAuditLog, error) {
	ctx, span := tracing.StartSpan(ctx, "auditlog.Repository.Create")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("merge_audit_logs")
	sb.Cols(auditColumns...)
	sb.Values(
		entry.ID, entry.TenantID, entry.RecordID, entry.SourceRecordID, entry.OldData, entry.NewData,
		entry.Strategy, entry.Audit, entry.PerformedBy, entry.PerformedAt,
	)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": entry.RecordID}).Error("Failed to create merge audit log")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create merge audit log")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	return entry, nil
}

// ListByRecord retrieves the audit history for a record, newest first
func (r *Repository) ListByRecord(ctx context.Context, tenantID string, recordID string, limit int) ([]models.MergeAuditLog, error) {
	ctx, span := tracing.StartSpan(ctx, "auditlog.Repository.ListByRecord")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(auditColumns...)
	sb.From("merge_audit_logs")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("record_id", recordID),
	)
	sb.OrderBy("performed_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var entries []models.MergeAuditLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list merge audit logs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list merge audit logs")
	}

	return entries, nil
}
