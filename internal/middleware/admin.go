package middleware

import (
	"net/http" // HTTP status codes

	"art_market/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// AdminOnlyMiddleware checks the user's role from the database on each request,
// so a demoted admin loses access before their token expires
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, exists := CurrentUser(c) // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "Unauthenticated"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Select("id", "role").First(&user, userID).Error; err != nil {
			// If user not found or any error, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required", "code": "Forbidden"})
			return
		}
		// Check if user role is admin
		if !user.IsAdmin() {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required", "code": "Forbidden"})
			return
		}
		c.Set(RoleKey, user.Role) // Refresh role from the database
		c.Next()                  // If admin, proceed to the next handler
	}
}
