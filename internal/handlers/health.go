package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/monitoring"
)

// Health reports readiness. Every authorization decision reads the permission store, so a
// failing probe turns the endpoint into a 503.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.Evaluate(requestContext(c))

		status := http.StatusOK
		if !report.Success {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
