package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/evolane/linkmanager/internal/db/repositories"
	"github.com/evolane/linkmanager/internal/services"
	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto HTTP responses: missing resources are
// 404, form validation problems are 422 with the full message list, anything
// else is a 500 carrying the wrapped error text.
func respondError(c *gin.Context, err error) {
	var nf *repositories.NotFoundError
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
		return
	}

	var ve *services.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": ve.Messages})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": fmt.Sprintf("the operation could not be completed: %s", err),
	})
}
