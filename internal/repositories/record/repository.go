// Package record persists contact records and serves the candidate lookups
// the duplicate resolver runs against.
package record

import (
	"context"
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
	"github.com/Ramsey-B/clover/pkg/normalize"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var recordColumns = []string{
	"id", "tenant_id", "email", "website", "profile_url", "phone", "company_name",
	"first_name", "last_name", "title", "source", "external_id", "enrichment",
	"created_at", "updated_at", "deleted_at",
}

// Repository handles contact record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying database handle so callers can span a
// transaction across repositories.
func (r *Repository) DB() database.DB {
	return r.db
}

// Create inserts a new contact record with its denormalized match columns
func (r *Repository) Create(ctx context.Context, record *models.ContactRecord) (*models.ContactRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Create")
	defer span.End()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("contact_records")
	sb.Cols(
		"id", "tenant_id", "email", "website", "profile_url", "phone", "company_name",
		"first_name", "last_name", "title", "source", "external_id", "enrichment",
		"norm_email", "domain", "norm_phone", "norm_profile_url", "norm_company", "fingerprint",
		"created_at", "updated_at",
	)
	sb.Values(
		record.ID, record.TenantID, record.Email, record.Website, record.ProfileURL, record.Phone, record.CompanyName,
		record.FirstName, record.LastName, record.Title, record.Source, record.ExternalID, record.Enrichment,
		normalize.Email(record.Email), record.Domain(), normalize.Phone(record.Phone),
		normalize.ProfileURL(record.ProfileURL), normalize.CompanyName(record.CompanyName), fingerprint.Identity(record),
		record.CreatedAt, record.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": record.ID}).Error("Failed to create contact record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact record")
	}

	return record, nil
}

// Get retrieves a contact record by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.ContactRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("contact_records")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var record models.ContactRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("record %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get contact record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact record")
	}

	return &record, nil
}

// GetByIDs retrieves multiple records by ID
func (r *Repository) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]models.ContactRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.GetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("contact_records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("id", idsToAny(ids)...),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var records []models.ContactRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get contact records by ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact records")
	}

	return records, nil
}

// List retrieves a page of records for a tenant, newest first
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) (*models.RecordListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("contact_records")
	countSb.Where(
		countSb.Equal("tenant_id", tenantID),
		countSb.IsNull("deleted_at"),
	)

	query, args := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count contact records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contact records")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("contact_records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("updated_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var records []models.ContactRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list contact records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contact records")
	}

	return &models.RecordListResponse{
		Items:      records,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Update rewrites a record and refreshes its denormalized match columns
func (r *Repository) Update(ctx context.Context, record *models.ContactRecord) (*models.ContactRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Update")
	defer span.End()

	record.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("contact_records")
	sb.Set(
		sb.Assign("email", record.Email),
		sb.Assign("website", record.Website),
		sb.Assign("profile_url", record.ProfileURL),
		sb.Assign("phone", record.Phone),
		sb.Assign("company_name", record.CompanyName),
		sb.Assign("first_name", record.FirstName),
		sb.Assign("last_name", record.LastName),
		sb.Assign("title", record.Title),
		sb.Assign("source", record.Source),
		sb.Assign("external_id", record.ExternalID),
		sb.Assign("enrichment", record.Enrichment),
		sb.Assign("norm_email", normalize.Email(record.Email)),
		sb.Assign("domain", record.Domain()),
		sb.Assign("norm_phone", normalize.Phone(record.Phone)),
		sb.Assign("norm_profile_url", normalize.ProfileURL(record.ProfileURL)),
		sb.Assign("norm_company", normalize.CompanyName(record.CompanyName)),
		sb.Assign("fingerprint", fingerprint.Identity(record)),
		sb.Assign("updated_at", record.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", record.ID),
		sb.Equal("tenant_id", record.TenantID),
		sb.IsNull("deleted_at"),
	)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	query, args := sb.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": record.ID}).Error("Failed to update contact record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update contact record")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("record %s not found", record.ID))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	return record, nil
}

// SoftDelete marks a record as deleted without dropping the row
func (r *Repository) SoftDelete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.SoftDelete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("contact_records")
	sb.Set(
		sb.Assign("deleted_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	query, args := sb.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete contact record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete contact record")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("record %s not found", id))
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	return nil
}

// FindPlausibleCandidates returns records sharing at least one normalized
// identifier with the incoming record. This is the cheap index-backed
// pre-filter; the resolver scores whatever comes back.
func (r *Repository) FindPlausibleCandidates(ctx context.Context, tenantID string, incoming *models.ContactRecord, limit int) ([]models.ContactRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.FindPlausibleCandidates")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 200
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("contact_records")

	var matchAny []string
	if v := normalize.Email(incoming.Email); v != "" {
		matchAny = append(matchAny, sb.Equal("norm_email", v))
	}
	if v := incoming.Domain(); v != "" {
		matchAny = append(matchAny, sb.Equal("domain", v))
	}
	if v := normalize.Phone(incoming.Phone); v != "" {
		matchAny = append(matchAny, sb.Equal("norm_phone", v))
	}
	if v := normalize.ProfileURL(incoming.ProfileURL); v != "" {
		matchAny = append(matchAny, sb.Equal("norm_profile_url", v))
	}
	if v := normalize.CompanyName(incoming.CompanyName); v != "" {
		matchAny = append(matchAny, sb.Equal("norm_company", v))
	}
	if len(matchAny) == 0 {
		return nil, nil
	}

	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
		sb.Or(matchAny...),
	)
	if incoming.ID != "" {
		sb.Where(sb.NotEqual("id", incoming.ID))
	}
	sb.OrderBy("updated_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var candidates []models.ContactRecord
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find candidate records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find candidate records")
	}

	return candidates, nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
