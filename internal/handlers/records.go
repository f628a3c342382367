package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/services/records"
	"github.com/Ramsey-B/clover/pkg/models"
)

// RecordsHandler exposes contact record CRUD plus merge operations
type RecordsHandler struct {
	service *records.Service
	logger  ectologger.Logger
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(service *records.Service, logger ectologger.Logger) *RecordsHandler {
	return &RecordsHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers record routes
func (h *RecordsHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/records", h.Create)
	g.GET("/records", h.List)
	g.GET("/records/:id", h.Get)
	g.DELETE("/records/:id", h.Delete)
	g.POST("/records/:id/merge", h.Merge)
	g.GET("/records/:id/audit", h.AuditHistory)
	g.GET("/records/:id/lineage", h.Lineage)
}

// Create stores a new contact record
func (h *RecordsHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var req models.CreateRecordRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := h.service.Create(ctx, tenantID, &req)
	if err != nil {
		return err
	}

	return CreatedResponse(c, created)
}

// List returns a page of records
func (h *RecordsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	page := QueryInt(c, "page", 1)
	pageSize := QueryInt(c, "page_size", 50)

	response, err := h.service.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return SuccessResponse(c, response)
}

// Get returns a single record
func (h *RecordsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	record, err := h.service.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, record)
}

// Delete soft-deletes a record
func (h *RecordsHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	return NoContentResponse(c)
}

// Merge merges an inline payload or another stored record into the target
func (h *RecordsHandler) Merge(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.MergeRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	performedBy := userFromContext(c)
	result, err := h.service.Merge(ctx, tenantID, id, &req, performedBy)
	if err != nil {
		return err
	}

	return SuccessResponse(c, result)
}

// AuditHistory returns the merge audit trail for a record
func (h *RecordsHandler) AuditHistory(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	limit := QueryInt(c, "limit", 100)
	entries, err := h.service.GetAuditHistory(ctx, tenantID, id, limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, entries)
}

// Lineage returns the merge ancestry of a record
func (h *RecordsHandler) Lineage(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	edges, err := h.service.GetLineage(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, edges)
}
