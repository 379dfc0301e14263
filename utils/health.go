package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
