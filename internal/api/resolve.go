package api

import (
	"log/slog"
	"net/http"

	"github.com/evolane/linkmanager/internal/resolve"
	"github.com/gin-gonic/gin"
)

// ResolveHandlers handles the public lookup endpoints used by templates and
// storefront integrations. They always answer 200 with a plain-text URL —
// resolution failures degrade to "#", never to an error page.
type ResolveHandlers struct {
	resolver *resolve.Service
}

// NewResolveHandlers creates a new ResolveHandlers instance.
func NewResolveHandlers(resolver *resolve.Service) *ResolveHandlers {
	return &ResolveHandlers{resolver: resolver}
}

// withSnapshot precomputes the request snapshot so repeated lookups within
// one request cost one query. Building the snapshot is best-effort; on
// failure the layered chain simply starts at the repository layer.
func (h *ResolveHandlers) withSnapshot(c *gin.Context) {
	snap, err := h.resolver.BuildSnapshot(c.Request.Context())
	if err != nil {
		slog.Warn("resolve snapshot build failed, falling back to live lookups", "error", err)
		return
	}
	c.Request = c.Request.WithContext(resolve.WithSnapshot(c.Request.Context(), snap))
}

// PlacementHandler resolves a placement identifier to a URL.
// GET /resolve/placement/:identifier
func (h *ResolveHandlers) PlacementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.withSnapshot(c)
		url := h.resolver.ResolveByPlacement(c.Request.Context(), c.Param("identifier"))
		c.String(http.StatusOK, url)
	}
}

// NameHandler resolves a link name to a URL.
// GET /resolve/link/:name
func (h *ResolveHandlers) NameHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.withSnapshot(c)
		url := h.resolver.ResolveByName(c.Request.Context(), c.Param("name"))
		c.String(http.StatusOK, url)
	}
}
