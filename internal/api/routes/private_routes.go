package routes

import (
	"github.com/gin-gonic/gin"
)

// registerPrivateRoutes defines all routes accessible to authenticated users
func registerPrivateRoutes(g *gin.RouterGroup, h Handlers) {
	// GET Requests
	g.GET("/session", h.Auth.SessionHandler)

	// POST Requests
	g.POST("/logout", h.Auth.LogoutHandler)
}
