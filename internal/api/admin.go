package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"art_market/internal/domain" // Importing domain models
	"art_market/internal/store"  // User repository
	"art_market/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID        uint      `json:"id"`         // User ID
	Username  string    `json:"username"`   // Username
	Email     string    `json:"email"`      // Email
	Mobile    string    `json:"mobile"`     // Mobile
	Role      string    `json:"role"`       // User role
	CreatedAt time.Time `json:"created_at"` // Registration time
}

// UsersPage is the paginated admin user list
type UsersPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Cached     bool                `json:"cached"`      // Whether served from cache
}

// ListUsersHandler returns all users, paginated
func ListUsersHandler(users *store.UserStore, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached UsersPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}

		list, total, err := users.List(ctx, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := UsersPage{
			Users:      make([]UserAdminResponse, len(list)),
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: (int(total) + pageSize - 1) / pageSize, // Calculate total pages
		}
		// Map users to response format
		for i, u := range list {
			resp.Users[i] = adminUser(u)
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return the response
	}
}

func adminUser(u domain.User) UserAdminResponse {
	return UserAdminResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
