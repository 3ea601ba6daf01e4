package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ServiceCheck is one dependency reported by the health endpoint
type ServiceCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// PUBLIC: HealthCheckHandler handles GET requests for health checks with detailed service status
func HealthCheckHandler(timeout time.Duration, checks ...ServiceCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		services := gin.H{"api": "healthy"}
		healthStatus := gin.H{
			"status":   "healthy",
			"services": services,
		}
		statusCode := http.StatusOK

		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				services[check.Name] = gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				}
				healthStatus["status"] = "degraded"
				statusCode = http.StatusServiceUnavailable
				continue
			}
			services[check.Name] = "healthy"
		}

		c.JSON(statusCode, healthStatus)
	}
}
