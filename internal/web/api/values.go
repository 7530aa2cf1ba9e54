package api

import (
	"net/http"
	"time"

	"homehub/internal/db"
	"homehub/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterValueRoutes exposes persisted hourly rollups for reading.
func RegisterValueRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, dbConn *db.DB) {
	values := r.Group("/api/devices")
	values.Use(middleware.RequireAuth())
	{
		values.GET("/:serial/hourly-values", func(c *gin.Context) {
			to := time.Now()
			from := to.Add(-24 * time.Hour)
			var err error
			if raw := c.Query("from"); raw != "" {
				if from, err = time.Parse(time.RFC3339, raw); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp"})
					return
				}
			}
			if raw := c.Query("to"); raw != "" {
				if to, err = time.Parse(time.RFC3339, raw); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp"})
					return
				}
			}

			rows, err := dbConn.QueryHourlyValues(c.Request.Context(), c.Param("serial"), from, to)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch hourly values"})
				return
			}
			c.JSON(http.StatusOK, rows)
		})
	}
}
