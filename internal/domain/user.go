package domain

import "time"

// Roles a user account can hold
const (
	RoleUser  = "user"  // Regular account
	RoleAdmin = "admin" // Administrator, may manage any listing
)

// DefaultProfilePic is assigned to accounts that never uploaded a picture
const DefaultProfilePic = "https://example.com/default-profile.png"

// MinPasswordLength is the minimum plaintext password length accepted before hashing
const MinPasswordLength = 6

// User Model
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`                       // Primary key
	Username   string    `gorm:"not null" json:"username"`                   // Display name
	Mobile     string    `gorm:"size:10;not null" json:"mobile"`             // 10-digit mobile number
	Email      string    `gorm:"size:255;uniqueIndex;not null" json:"email"` // Unique, stored lowercased
	Password   string    `gorm:"not null" json:"-"`                          // Bcrypt hash, never serialized
	Role       string    `gorm:"size:16;default:user;not null" json:"role"`  // Role: user or admin
	ProfilePic string    `gorm:"size:512" json:"profile_pic"`                // Profile picture URL
	CreatedAt  time.Time `json:"created_at"`                                 // Creation timestamp
	UpdatedAt  time.Time `json:"updated_at"`                                 // Last update timestamp
}

// IsAdmin reports whether the user holds the administrator role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSummary is the public projection of a user embedded in listing responses
type UserSummary struct {
	ID       uint   `json:"id"`       // User ID
	Username string `json:"username"` // Username
	Email    string `json:"email"`    // Email address
}

// Summary returns the public projection of the user
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
