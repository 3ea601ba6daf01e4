package routes

import (
	"net/http"

	"github.com/cpp-cyber/ldapauth/internal/api/handlers"
	"github.com/cpp-cyber/ldapauth/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router serves
type Handlers struct {
	Auth      *handlers.AuthHandler
	Directory *handlers.DirectoryHandler
	Health    gin.HandlerFunc
	Metrics   http.Handler
}

// RegisterRoutes sets up all API routes with their respective middleware and handlers
func RegisterRoutes(r *gin.Engine, h Handlers) {
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	// Public routes (no authentication required)
	public := r.Group("/api/v1")
	registerPublicRoutes(public, h)

	// Private routes (authentication required)
	private := r.Group("/api/v1")
	private.Use(middleware.AuthRequired)
	registerPrivateRoutes(private, h)

	// Admin routes (authentication + admin privileges required)
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AdminRequired)
	registerAdminRoutes(admin, h)
}
