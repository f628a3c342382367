package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/services/records"
	"github.com/Ramsey-B/clover/pkg/models"
)

// ReviewHandler exposes the merge review queue
type ReviewHandler struct {
	service *records.Service
	logger  ectologger.Logger
}

// NewReviewHandler creates a new review queue handler
func NewReviewHandler(service *records.Service, logger ectologger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers review queue routes
func (h *ReviewHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/review", h.List)
	g.POST("/review/:id/approve", h.Approve)
	g.POST("/review/:id/reject", h.Reject)
}

type approveRequest struct {
	Strategy models.MergeStrategyType `json:"strategy,omitempty"`
}

// List returns a page of pending merge candidates
func (h *ReviewHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	page := QueryInt(c, "page", 1)
	pageSize := QueryInt(c, "page_size", 50)

	response, err := h.service.ListReviewQueue(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return SuccessResponse(c, response)
}

// Approve merges a pending candidate into its matched record
func (h *ReviewHandler) Approve(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req approveRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	resolvedBy := userFromContext(c)
	result, err := h.service.ApproveCandidate(ctx, tenantID, id, req.Strategy, resolvedBy)
	if err != nil {
		return err
	}

	return SuccessResponse(c, result)
}

// Reject dismisses a pending candidate without merging
func (h *ReviewHandler) Reject(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	resolvedBy := userFromContext(c)
	if err := h.service.RejectCandidate(ctx, tenantID, id, resolvedBy); err != nil {
		return err
	}

	return NoContentResponse(c)
}
