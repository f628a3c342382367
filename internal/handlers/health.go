package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/graph"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/redis"
)

// HealthHandler reports service and dependency health
type HealthHandler struct {
	db     database.DB
	cache  *redis.Client
	graph  *graph.Client
	logger ectologger.Logger
}

// NewHealthHandler creates a new health handler. Nil dependencies are
// reported as disabled rather than unhealthy.
func NewHealthHandler(db database.DB, cache *redis.Client, graphClient *graph.Client, logger ectologger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		graph:  graphClient,
		logger: logger,
	}
}

// RegisterRoutes registers health routes
func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/health/ready", h.Ready)
}

// Health is the liveness probe
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Ready is the readiness probe: every enabled dependency must answer
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			components["database"] = "unhealthy"
			healthy = false
		} else {
			components["database"] = "ok"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			components["redis"] = "unhealthy"
			healthy = false
		} else {
			components["redis"] = "ok"
		}
	} else {
		components["redis"] = "disabled"
	}

	if h.graph != nil {
		if err := h.graph.VerifyConnectivity(ctx); err != nil {
			components["graph"] = "unhealthy"
			healthy = false
		} else {
			components["graph"] = "ok"
		}
	} else {
		components["graph"] = "disabled"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.JSON(status, map[string]any{
		"status":     overall,
		"components": components,
	})
}
