package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qualitrack/qualitrack/internal/app"
	"github.com/qualitrack/qualitrack/internal/handlers"
	"github.com/qualitrack/qualitrack/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, health *monitoring.HealthManager, cfg app.MonitoringConfig) {
	if !cfg.Health.Enabled {
		r.GET("/health", disabledHandler)
	} else {
		r.GET("/health", handlers.Health(health))
	}

	if cfg.Prometheus.Enabled {
		endpoint := cfg.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}
}

func disabledHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
