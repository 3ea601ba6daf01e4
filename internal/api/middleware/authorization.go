package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys shared with the auth handler
const (
	sessionUserKey  = "id"
	sessionAdminKey = "isAdmin"
)

// AuthRequired provides authentication middleware for ensuring that a user is logged in.
func AuthRequired(c *gin.Context) {
	if GetUser(c) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		c.Abort()
		return
	}
	c.Next()
}

// AdminRequired trusts the admin flag computed at login.
func AdminRequired(c *gin.Context) {
	session := sessions.Default(c)
	if GetUser(c) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		c.Abort()
		return
	}

	isAdmin, _ := session.Get(sessionAdminKey).(bool)
	if !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		c.Abort()
		return
	}

	c.Next()
}

func GetUser(c *gin.Context) string {
	username, _ := sessions.Default(c).Get(sessionUserKey).(string)
	return username
}

func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin")
		c.Writer.Header().Set("Cache-Control", "no-cache")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
