package middleware

import (
	"strconv"

	"github.com/evolane/linkmanager/internal/audit"
	"github.com/gin-gonic/gin"
)

const (
	// ActorIDHeader and ActorNameHeader identify the back-office user on
	// whose behalf a request acts. They are set by the admin frontend (or
	// its reverse proxy) after authentication — this service only records
	// them for the audit trail.
	ActorIDHeader   = "X-Actor-ID"
	ActorNameHeader = "X-Actor-Name"
)

// Actor reads the actor headers and attaches them to the request context so
// repository mutations can attribute their audit entries. Requests without
// the headers proceed as unattributed; nothing here rejects.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.GetHeader(ActorNameHeader)
		rawID := c.GetHeader(ActorIDHeader)
		if name == "" && rawID == "" {
			c.Next()
			return
		}

		actor := audit.Actor{Name: name}
		if rawID != "" {
			if id, err := strconv.ParseInt(rawID, 10, 64); err == nil {
				actor.ID = id
			}
		}

		ctx := audit.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
