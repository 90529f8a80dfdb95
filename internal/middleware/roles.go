package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stagedesk/internal/security"
)

// RequireRole gates a route group on the application role claim. Browsers
// are redirected to /unauthorized; API callers get 403. Must run after
// Guard.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsVal, exists := c.Get(ContextClaims)
		if !exists {
			deny(c, "/login", "unauthorized")
			return
		}
		claims, ok := claimsVal.(security.AccessClaims)
		if !ok {
			deny(c, "/login", "unauthorized")
			return
		}

		if _, ok := roleSet[claims.AppRole()]; !ok {
			if WantsHTML(c) {
				c.Redirect(http.StatusFound, "/unauthorized")
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
