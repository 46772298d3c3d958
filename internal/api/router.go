package api

import (
	"net/http"
	"time"

	"github.com/evolane/linkmanager/internal/audit"
	"github.com/evolane/linkmanager/internal/cms"
	"github.com/evolane/linkmanager/internal/config"
	"github.com/evolane/linkmanager/internal/db/repositories"
	"github.com/evolane/linkmanager/internal/middleware"
	"github.com/evolane/linkmanager/internal/resolve"
	"github.com/evolane/linkmanager/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// NewRouter creates and configures the Gin router. recorder may be nil when
// auditing is disabled; cmsResolver may be nil when no CMS is configured.
func NewRouter(cfg *config.Config, db *sqlx.DB, recorder *audit.Recorder, cmsResolver cms.Resolver) *gin.Engine {
	router := gin.New()

	linkRepo := repositories.NewLinkRepository(db, recorder)
	placementRepo := repositories.NewPlacementRepository(db, recorder)
	logRepo := repositories.NewLogRepository(db)

	saver := services.NewLinkSaver(linkRepo, placementRepo, cmsResolver)
	resolver := resolve.NewService(linkRepo, placementRepo, db, cmsResolver)

	linkHandlers := NewLinkHandlers(linkRepo, saver)
	placementHandlers := NewPlacementHandlers(placementRepo, linkRepo)
	logHandlers := NewLogHandlers(logRepo)
	resolveHandlers := NewResolveHandlers(resolver)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Actor())

	router.GET("/health", healthCheckHandler(db))

	// Public lookups, consumed by templates and storefront integrations.
	resolveGroup := router.Group("/resolve")
	{
		resolveGroup.GET("/placement/:identifier", resolveHandlers.PlacementHandler())
		resolveGroup.GET("/link/:name", resolveHandlers.NameHandler())
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/links", linkHandlers.ListHandler())
		v1.POST("/links", linkHandlers.CreateHandler())
		v1.GET("/links/:id", linkHandlers.GetHandler())
		v1.PUT("/links/:id", linkHandlers.UpdateHandler())
		v1.DELETE("/links/:id", linkHandlers.DeleteHandler())
		v1.POST("/links/:id/toggle", linkHandlers.ToggleHandler())
		v1.PUT("/link-positions", linkHandlers.PositionsHandler())
		v1.GET("/link-form", linkHandlers.FormHandler())

		v1.GET("/placements", placementHandlers.ListHandler())
		v1.POST("/placements", placementHandlers.CreateHandler())
		v1.GET("/placements/:id", placementHandlers.GetHandler())
		v1.PUT("/placements/:id", placementHandlers.UpdateHandler())
		v1.DELETE("/placements/:id", placementHandlers.DeleteHandler())
		v1.PUT("/placements/:id/link", placementHandlers.AssociateHandler())
		v1.DELETE("/placements/:id/link/:linkId", placementHandlers.DissociateHandler())

		v1.GET("/logs", logHandlers.ListHandler())
		v1.GET("/logs/:id", logHandlers.GetHandler())
		v1.DELETE("/logs", logHandlers.ClearHandler())

		v1.GET("/cms-pages", cmsPagesHandler(cmsResolver))
	}

	return router
}

// healthCheckHandler reports service health including database connectivity.
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// cmsPagesHandler lists the configured CMS pages for the admin form's page
// selector.
func cmsPagesHandler(resolver cms.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if resolver == nil {
			c.JSON(http.StatusOK, gin.H{"pages": map[string]int64{}})
			return
		}
		pages, err := resolver.ListPages(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pages": pages})
	}
}
