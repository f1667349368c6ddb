package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "auth_user_id"

// Middleware rejects requests without a valid bearer token and stores
// the verified user id on the request context.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		uid, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDKey, string(uid))
		c.Next()
	}
}

// TokenFromRequest extracts a token from the Authorization header or,
// for WebSocket handshakes where headers are awkward, a query param.
func TokenFromRequest(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok && after != "" {
		return after
	}
	return c.Query("token")
}

// UserID returns the verified user id set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
