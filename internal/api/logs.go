package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/evolane/linkmanager/internal/db/repositories"
	"github.com/gin-gonic/gin"
)

// LogHandlers handles the activity log endpoints.
type LogHandlers struct {
	logs *repositories.LogRepository
}

// NewLogHandlers creates a new LogHandlers instance.
func NewLogHandlers(logs *repositories.LogRepository) *LogHandlers {
	return &LogHandlers{logs: logs}
}

// ListHandler lists log entries with filters and pagination. Dates are
// YYYY-MM-DD and interpreted at day granularity, inclusive on both ends.
// GET /api/v1/logs?severity=warning&action=delete&from=2026-01-01&to=2026-01-31&search=contact&page=1&limit=50
func (h *LogHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters, err := logFiltersFrom(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		result, err := h.logs.List(c.Request.Context(), filters, page, limit, c.Query("order_by"), c.Query("dir"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetHandler retrieves one log entry.
// GET /api/v1/logs/:id
func (h *LogHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		entry, err := h.logs.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if entry == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "log entry not found"})
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// ClearHandler purges the activity log.
// DELETE /api/v1/logs
func (h *LogHandlers) ClearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := h.logs.Clear(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

func logFiltersFrom(c *gin.Context) (repositories.LogFilters, error) {
	var filters repositories.LogFilters

	if raw := c.Query("severity"); raw != "" {
		severity := models.Severity(raw)
		if !severity.Valid() {
			return filters, fieldError("severity")
		}
		filters.Severity = &severity
	}
	if raw := c.Query("resource_type"); raw != "" {
		resourceType := models.ResourceType(raw)
		if !resourceType.Valid() {
			return filters, fieldError("resource_type")
		}
		filters.ResourceType = &resourceType
	}
	if raw := c.Query("resource_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filters, fieldError("resource_id")
		}
		filters.ResourceID = &id
	}
	if raw := c.Query("action"); raw != "" {
		action := models.LogAction(raw)
		if !action.Valid() {
			return filters, fieldError("action")
		}
		filters.Action = &action
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filters, fieldError("from")
		}
		filters.DateFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filters, fieldError("to")
		}
		filters.DateTo = &to
	}
	filters.Search = c.Query("search")

	return filters, nil
}
