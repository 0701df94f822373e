package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"art_market/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by JWTAuthMiddleware
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// JWTAuthMiddleware validates JWT tokens and extracts user information
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header", "code": "Unauthenticated"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "Unauthenticated"})
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Set(RoleKey, claims.Role)     // Store role in context
		c.Next()                        // Proceed to the next handler
	}
}

// CurrentUser returns the identity stored by JWTAuthMiddleware
func CurrentUser(c *gin.Context) (uint, string, bool) {
	id, ok := c.Get(UserIDKey) // Get userID from context
	if !ok {
		return 0, "", false
	}
	userID, ok := id.(uint)
	if !ok {
		return 0, "", false
	}
	return userID, c.GetString(RoleKey), true
}
