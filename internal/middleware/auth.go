package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rutas/api/internal/security"
)

const (
	// SessionHeader carries the session token on authenticated routes.
	SessionHeader = "x-auth-token"

	sessionKey = "session"
)

// Auth verifies the session token and attaches its claims to the context.
// It is stateless: the user row is not consulted, so a suspended or deleted
// user keeps access until the token expires.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.GetHeader(SessionHeader))
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied."})
			return
		}

		claims, err := security.ParseSessionToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid."})
			return
		}

		c.Set(sessionKey, *claims)
		c.Next()
	}
}

// Session returns the claims attached by Auth.
func Session(c *gin.Context) (security.SessionClaims, bool) {
	val, exists := c.Get(sessionKey)
	if !exists {
		return security.SessionClaims{}, false
	}
	claims, ok := val.(security.SessionClaims)
	return claims, ok
}
