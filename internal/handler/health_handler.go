package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"usermgmt/internal/logging"
)

// Pinger is a dependency whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and dependency status.
type HealthHandler struct {
	database Pinger
	cache    Pinger
	timeout  time.Duration
	log      logging.Logger
}

// NewHealthHandler creates a health handler. cache may be nil.
func NewHealthHandler(database, cache Pinger, log logging.Logger) *HealthHandler {
	return &HealthHandler{
		database: database,
		cache:    cache,
		timeout:  2 * time.Second,
		log:      log,
	}
}

// HealthResponse describes service health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Health godoc
// @Summary Service health
// @Description The cache is optional; its outage degrades but does not fail the check.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok", Cache: "ok"}
	status := http.StatusOK

	if err := h.database.Ping(ctx); err != nil {
		h.log.Warn(ctx, "database health check failed", "error", err)
		resp.Status = "unavailable"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.cache == nil {
		resp.Cache = "disabled"
	} else if err := h.cache.Ping(ctx); err != nil {
		h.log.Warn(ctx, "cache health check failed", "error", err)
		resp.Cache = "unavailable"
		if status == http.StatusOK {
			resp.Status = "degraded"
		}
	}

	return c.JSON(status, resp)
}
