// README: Firebase bearer-token auth; uid and role flow through the gin context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skyeats/internal/infra"
)

const (
	ctxUID  = "auth_uid"
	ctxRole = "auth_role"
)

// Auth verifies the Authorization bearer token and stores the caller's uid
// and role claim on the context. Requests without a valid token never reach
// the handlers.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization must be a bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUID, token.UID)
		role, _ := token.Claims["role"].(string)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// RequireRole gates a route group to the given role claims.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := CallerRole(c)
		for _, r := range roles {
			if got == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}
