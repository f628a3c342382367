package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	dedupesvc "github.com/Ramsey-B/clover/internal/services/dedupe"
	"github.com/Ramsey-B/clover/pkg/models"
)

// DuplicatesHandler exposes ad-hoc duplicate checks
type DuplicatesHandler struct {
	service *dedupesvc.Service
	logger  ectologger.Logger
}

// NewDuplicatesHandler creates a new duplicates handler
func NewDuplicatesHandler(service *dedupesvc.Service, logger ectologger.Logger) *DuplicatesHandler {
	return &DuplicatesHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers duplicate check routes
func (h *DuplicatesHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/duplicates/check", h.Check)
}

// Check scores a payload against stored records without saving anything.
// Pass refresh=true to bypass the decision cache.
func (h *DuplicatesHandler) Check(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var req models.CheckDuplicatesRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	threshold := h.service.DefaultThreshold()
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	refresh := QueryBool(c, "refresh")

	incoming := req.Record.ToRecord(tenantID)
	decision, err := h.service.CheckDuplicates(ctx, tenantID, incoming, threshold, refresh)
	if err != nil {
		return err
	}

	return SuccessResponse(c, decision)
}
