package api

import (
	"net/http" // HTTP status codes

	"art_market/internal/auth"       // Account service
	"art_market/internal/middleware" // Session identity

	"github.com/gin-gonic/gin" // Gin web framework
)

// GetProfileHandler returns the caller's account
func GetProfileHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "Unauthenticated"})
			return
		}
		user, err := svc.Profile(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateProfileHandler edits the caller's username, mobile or profile picture
func UpdateProfileHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "Unauthenticated"})
			return
		}
		var patch auth.ProfilePatch // Bind JSON request to struct
		if !bindJSON(c, &patch) {
			return
		}
		user, err := svc.UpdateProfile(c.Request.Context(), userID, patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
