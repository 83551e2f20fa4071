package handlers

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/wayride/wayride-backend/internal/rides"
)

// respondEngineError maps engine error kinds onto HTTP responses. Anything
// without a kind is an internal failure.
func respondEngineError(c *gin.Context, err error) {
	kind, ok := rides.ErrKind(err)
	if !ok {
		log.Printf("Internal error on %s: %v", c.FullPath(), err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}

	switch kind {
	case rides.KindValidation:
		c.JSON(400, gin.H{"error": err.Error()})
	case rides.KindNotFound:
		c.JSON(404, gin.H{"error": err.Error()})
	case rides.KindForbidden:
		c.JSON(403, gin.H{"error": err.Error()})
	case rides.KindConflict, rides.KindDuplicate:
		c.JSON(409, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": "Internal server error"})
	}
}
