package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/users"
)

// RequireRoles lets the request through only when the caller's stored role
// is one of allowed. Run it after AuthMiddleware.
func RequireRoles(userSvc *users.Service, allowed ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident.Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Sign in required"})
			return
		}

		role, err := userSvc.GetRole(c.Request.Context(), ident.Key)
		if err != nil {
			logger.Log.Error("Failed to load role", logger.WithUserID(ident.Key), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			return
		}
		c.Set("role", string(role))

		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have access to this resource"})
	}
}
