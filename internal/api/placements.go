package api

import (
	"net/http"
	"strconv"

	"github.com/evolane/linkmanager/internal/db/models"
	"github.com/evolane/linkmanager/internal/db/repositories"
	"github.com/gin-gonic/gin"
)

// PlacementHandlers handles the placement management endpoints.
type PlacementHandlers struct {
	placements *repositories.PlacementRepository
	links      *repositories.LinkRepository
}

// NewPlacementHandlers creates a new PlacementHandlers instance.
func NewPlacementHandlers(placements *repositories.PlacementRepository, links *repositories.LinkRepository) *PlacementHandlers {
	return &PlacementHandlers{placements: placements, links: links}
}

// ListHandler lists placements, optionally with their bound link.
// GET /api/v1/placements?active=true&with_links=true
func (h *PlacementHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly := false
		var activeFilter *bool
		if raw := c.Query("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "active must be a boolean"})
				return
			}
			activeOnly = active
			activeFilter = &active
		}

		if c.Query("with_links") == "true" {
			placements, err := h.placements.ListWithLinks(c.Request.Context(), activeOnly)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"placements": placements})
			return
		}

		placements, err := h.placements.List(c.Request.Context(), activeFilter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"placements": placements})
	}
}

// GetHandler retrieves one placement.
// GET /api/v1/placements/:id
func (h *PlacementHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		placement, err := h.placements.GetByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, placement)
	}
}

type placementRequest struct {
	Identifier  string  `json:"identifier" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Active      bool    `json:"active"`
}

// CreateHandler creates a placement.
// POST /api/v1/placements
func (h *PlacementHandlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req placementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := models.ValidateIdentifier(req.Identifier); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []string{err.Error()}})
			return
		}

		placement := &models.Placement{
			Identifier:  req.Identifier,
			Name:        req.Name,
			Description: req.Description,
			Active:      req.Active,
		}
		id, err := h.placements.Create(c.Request.Context(), placement)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// UpdateHandler partially updates a placement. Only fields present in the
// body are written; "description": null clears the description.
// PUT /api/v1/placements/:id
func (h *PlacementHandlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		upd, err := placementUpdateFrom(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updated, err := h.placements.Update(c.Request.Context(), id, upd)
		if err != nil {
			respondError(c, err)
			return
		}
		if !updated {
			c.JSON(http.StatusNotFound, gin.H{"error": "placement not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DeleteHandler deletes a placement. Its association rows go with it; the
// link itself is untouched.
// DELETE /api/v1/placements/:id
func (h *PlacementHandlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		deleted, err := h.placements.Delete(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "placement not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AssociateHandler binds a link to a placement, replacing any existing
// binding.
// PUT /api/v1/placements/:id/link
func (h *PlacementHandlers) AssociateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var body struct {
			LinkID int64 `json:"link_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "link_id is required"})
			return
		}

		// Surface missing resources as 404s before touching the junction
		// table; the insert would otherwise fail on a foreign key.
		if _, err := h.placements.GetByID(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		if _, err := h.links.GetByID(c.Request.Context(), body.LinkID); err != nil {
			respondError(c, err)
			return
		}

		if _, err := h.placements.AssociateLink(c.Request.Context(), id, body.LinkID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DissociateHandler removes the binding between a placement and a link.
// Idempotent: removing an absent binding is a 204 as well.
// DELETE /api/v1/placements/:id/link/:linkId
func (h *PlacementHandlers) DissociateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		linkID, ok := pathID(c, "linkId")
		if !ok {
			return
		}

		if _, err := h.placements.DissociateLink(c.Request.Context(), id, linkID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// placementUpdateFrom builds a partial update from a decoded JSON object,
// distinguishing "field absent" from "field set to null".
func placementUpdateFrom(body map[string]any) (repositories.PlacementUpdate, error) {
	var upd repositories.PlacementUpdate

	if raw, present := body["identifier"]; present {
		s, ok := raw.(string)
		if !ok {
			return upd, errInvalidField("identifier")
		}
		upd.Identifier = &s
	}
	if raw, present := body["name"]; present {
		s, ok := raw.(string)
		if !ok {
			return upd, errInvalidField("name")
		}
		upd.Name = &s
	}
	if raw, present := body["description"]; present {
		upd.SetDescription = true
		if raw != nil {
			s, ok := raw.(string)
			if !ok {
				return upd, errInvalidField("description")
			}
			upd.Description = &s
		}
	}
	if raw, present := body["active"]; present {
		b, ok := raw.(bool)
		if !ok {
			return upd, errInvalidField("active")
		}
		upd.Active = &b
	}

	return upd, nil
}

type fieldError string

func (e fieldError) Error() string { return "invalid value for " + string(e) }

func errInvalidField(name string) error { return fieldError(name) }
