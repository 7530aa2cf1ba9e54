package api

import (
	"errors"
	"net/http"

	"homehub/internal/ingest"
	"homehub/internal/models"
	"homehub/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterSampleRoutes exposes the HTTP sample intake.
func RegisterSampleRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, svc *ingest.Service) {
	devices := r.Group("/api/devices")
	devices.Use(middleware.RequireAuth())
	{
		devices.POST("/:serial/samples", func(c *gin.Context) {
			var fields map[string]any
			if err := c.ShouldBindJSON(&fields); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sample payload"})
				return
			}

			err := svc.HandleSample(c.Request.Context(), c.Param("serial"), fields)
			if errors.Is(err, models.ErrDeviceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown device"})
				return
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "sample handling failed"})
				return
			}
			c.Status(http.StatusAccepted)
		})
	}
}
