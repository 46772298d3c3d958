// Package api implements the HTTP surface: the /api/v1 admin endpoints, the
// /resolve lookup endpoints, and the health probe. Handlers stay thin — they
// parse, delegate to a repository or service, and map errors; all domain
// rules live below this package.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/evolane/linkmanager/internal/db/repositories"
	"github.com/evolane/linkmanager/internal/services"
	"github.com/gin-gonic/gin"
)

// LinkHandlers handles the link management endpoints.
type LinkHandlers struct {
	links *repositories.LinkRepository
	saver *services.LinkSaver
}

// NewLinkHandlers creates a new LinkHandlers instance.
func NewLinkHandlers(links *repositories.LinkRepository, saver *services.LinkSaver) *LinkHandlers {
	return &LinkHandlers{links: links, saver: saver}
}

// ListHandler lists links.
// GET /api/v1/links?active=true&order_by=position&dir=ASC
func (h *LinkHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var activeOnly *bool
		if raw := c.Query("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "active must be a boolean"})
				return
			}
			activeOnly = &active
		}

		links, err := h.links.List(c.Request.Context(), activeOnly, c.Query("order_by"), c.Query("dir"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"links": links})
	}
}

// GetHandler retrieves one link.
// GET /api/v1/links/:id
func (h *LinkHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		link, err := h.links.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

// CreateHandler creates a link (and binds a placement when the form names
// one).
// POST /api/v1/links
func (h *LinkHandlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var form services.LinkForm
		if err := c.ShouldBindJSON(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := h.saver.Save(c.Request.Context(), nil, form)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// UpdateHandler updates a link through the same save flow as creation.
// PUT /api/v1/links/:id
func (h *LinkHandlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var form services.LinkForm
		if err := c.ShouldBindJSON(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := h.saver.Save(c.Request.Context(), &id, form)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// DeleteHandler deletes a link. Associated placements left without any link
// are removed as well unless cascade=false.
// DELETE /api/v1/links/:id?cascade=true
func (h *LinkHandlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		cascade := true
		if raw := c.Query("cascade"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "cascade must be a boolean"})
				return
			}
			cascade = parsed
		}

		deleted, err := h.links.Delete(c.Request.Context(), id, cascade)
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ToggleHandler flips the active flag.
// POST /api/v1/links/:id/toggle
func (h *LinkHandlers) ToggleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		toggled, err := h.links.ToggleActive(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !toggled {
			c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// PositionsHandler applies a batch of position changes. The batch is
// best-effort; a partial failure reports 207-style detail in the body rather
// than rolling back.
// PUT /api/v1/links/positions
func (h *LinkHandlers) PositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Positions map[string]int `json:"positions" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		positions := make(map[int64]int, len(body.Positions))
		for raw, position := range body.Positions {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "position keys must be link ids"})
				return
			}
			positions[id] = position
		}

		allApplied, err := h.links.UpdatePositions(c.Request.Context(), positions)
		if err != nil {
			slog.Warn("position batch partially failed", "error", err)
		}
		c.JSON(http.StatusOK, gin.H{"all_applied": allApplied})
	}
}

// FormHandler returns the prefill values for the admin form.
// GET /api/v1/link-form?id=3
func (h *LinkHandlers) FormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var linkID *int64
		if raw := c.Query("id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
				return
			}
			linkID = &id
		}

		values, err := h.saver.FormData(c.Request.Context(), linkID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, values)
	}
}

// pathID parses a path parameter as an int64, writing the 400 itself on
// malformed input.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return id, true
}
