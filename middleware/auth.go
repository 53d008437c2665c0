package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podcastr-backend/users"
	"github.com/vnkhanh/podcastr-backend/utils"
)

const identityKey = "identity"

// bearerToken reads "Bearer <token>" from Authorization, falling back to
// X-Auth-Token for clients that cannot set Authorization.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		header = c.GetHeader("X-Auth-Token")
	}
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1], true
	}
	if len(parts) == 1 && c.GetHeader("Authorization") == "" {
		return parts[0], true
	}
	return "", false
}

func setIdentity(c *gin.Context, claims *utils.Claims) {
	ident := claims.Identity()
	c.Set(identityKey, ident)
	c.Set("user_id", ident.Key)
}

// AuthMiddleware rejects requests without a valid session token.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or malformed Authorization header"})
			return
		}
		claims, err := utils.VerifyToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the identity when a valid token is sent
// and lets anonymous requests through otherwise.
func OptionalAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := utils.VerifyToken(secret, token); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

// IdentityFrom returns the caller identity, or an anonymous one.
func IdentityFrom(c *gin.Context) users.Identity {
	if v, ok := c.Get(identityKey); ok {
		if ident, ok := v.(users.Identity); ok {
			return ident
		}
	}
	return users.Identity{}
}
