package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/auth"
	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/gin-gonic/gin"
)

// =================================================
// Handlers
// =================================================

type AuthHandler struct {
	authService  *auth.AuthService
	loginTimeout time.Duration
}

// DirectoryHandler exposes read-only directory diagnostics to admins
type DirectoryHandler struct {
	checker EndpointChecker
}

// EndpointChecker probes every configured directory server
type EndpointChecker interface {
	Check(ctx context.Context) []ldap.EndpointStatus
}

// =================================================
// API endpoint request / response structures
// =================================================

type UsernamePasswordRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"isAdmin"`
	Strategy string `json:"strategy"`
	Created  bool   `json:"created"`
}

type EndpointStatusResponse struct {
	Address   string `json:"address"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// validateAndBind binds the JSON body into req and writes a 400 on failure.
func validateAndBind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Ctx(c.Request.Context()).Debug().Err(err).Str("path", c.FullPath()).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return false
	}
	return true
}
