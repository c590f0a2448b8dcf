package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rutas/api/internal/models"
)

// RequireRoles admits callers whose session role is in roles. With no roles
// any authenticated caller passes. A request that never went through Auth
// is rejected.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Session(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied."})
			return
		}

		if !models.Role(claims.Role).Allowed(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Forbidden: You do not have the necessary permissions.",
			})
			return
		}

		c.Next()
	}
}
