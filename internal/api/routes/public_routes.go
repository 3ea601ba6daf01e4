package routes

import (
	"github.com/gin-gonic/gin"
)

// registerPublicRoutes defines all routes accessible without authentication
func registerPublicRoutes(g *gin.RouterGroup, h Handlers) {
	// GET Requests
	g.GET("/health", h.Health)

	// POST Requests
	g.POST("/login", h.Auth.LoginHandler)
}
