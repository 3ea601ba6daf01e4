package routes

import (
	"github.com/gin-gonic/gin"
)

// registerAdminRoutes defines all routes accessible ONLY to admin users
func registerAdminRoutes(g *gin.RouterGroup, h Handlers) {
	g.GET("/directory/endpoints", h.Directory.EndpointsHandler)
}
