package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/auth"
	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys
const (
	SessionUserKey     = "id"
	SessionAdminKey    = "isAdmin"
	SessionStrategyKey = "strategy"
)

// =================================================
// Login / Logout / Session Handlers
// =================================================

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.AuthService, loginTimeout time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginTimeout: loginTimeout,
	}
}

// LoginHandler handles the login POST request
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req UsernamePasswordRequest
	if !validateAndBind(c, &req) {
		return
	}

	ctx, cancel := h.loginContext(c)
	defer cancel()
	log := logger.Ctx(ctx)

	result, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeLoginError(c, err)
		return
	}

	isAdmin, err := h.authService.IsAdmin(ctx, result)
	if err != nil {
		log.Warn().Err(err).Str("username", result.User.Username).Msg("error checking admin status")
		isAdmin = false
	}

	// Create session
	session := sessions.Default(c)
	session.Set(SessionUserKey, result.User.Username)
	session.Set(SessionAdminKey, isAdmin)
	session.Set(SessionStrategyKey, result.Strategy)
	if err := session.Save(); err != nil {
		log.Error().Err(err).Str("username", result.User.Username).Msg("failed to save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message:  "Login successful",
		Username: result.User.Username,
		Email:    result.User.Email,
		FullName: result.User.FullName,
		IsAdmin:  isAdmin,
		Strategy: result.Strategy,
		Created:  result.Created,
	})
}

func (h *AuthHandler) loginContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.loginTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.loginTimeout)
}

// writeLoginError maps a failed login onto a status code and a message that
// never tells which stage rejected the credentials.
func writeLoginError(c *gin.Context, err error) {
	log := logger.Ctx(c.Request.Context())

	var fallbackErr *auth.FallbackError
	var reconcileErr *auth.ReconcileError
	var dirErr *ldap.Error

	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
	case errors.As(err, &fallbackErr):
		log.Info().Err(err).Msg("login rejected by all strategies")
		c.JSON(http.StatusUnauthorized, gin.H{"error": ldap.PublicMessage, "details": fallbackErr.Public()})
	case errors.As(err, &reconcileErr):
		log.Error().Err(err).Msg("login could not be synchronized")
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to synchronize user account"})
	case errors.As(err, &dirErr):
		if dirErr.Kind == ldap.KindConnection {
			log.Error().Err(err).Msg("directory unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": dirErr.Public()})
			return
		}
		log.Info().Err(err).Str("kind", dirErr.Kind.String()).Msg("login rejected by directory")
		c.JSON(http.StatusUnauthorized, gin.H{"error": dirErr.Public()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": ldap.PublicMessage})
	case errors.Is(err, context.DeadlineExceeded):
		log.Error().Err(err).Msg("login timed out")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication timed out"})
	default:
		log.Error().Err(err).Msg("authentication failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
	}
}

// LogoutHandler handles user logout
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})

	if err := session.Save(); err != nil {
		logger.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to clear session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// SessionHandler returns current session information for authenticated users
func (h *AuthHandler) SessionHandler(c *gin.Context) {
	session := sessions.Default(c)

	// AuthRequired guarantees the id is present
	username, _ := session.Get(SessionUserKey).(string)
	isAdmin, _ := session.Get(SessionAdminKey).(bool)
	strategy, _ := session.Get(SessionStrategyKey).(string)

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      username,
		"isAdmin":       isAdmin,
		"strategy":      strategy,
	})
}
