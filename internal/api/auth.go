package api

import (
	"net/http" // HTTP status codes

	"art_market/internal/auth"   // Account service
	"art_market/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// SignupRequest is the registration body
type SignupRequest struct {
	Username string `json:"username"` // Display name
	Mobile   string `json:"mobile"`   // 10-digit mobile number
	Email    string `json:"email"`    // Login email
	Password string `json:"password"` // Plaintext password
}

// LoginRequest is the login body
type LoginRequest struct {
	Email    string `json:"email"`    // Login email
	Password string `json:"password"` // Plaintext password
}

// ForgotPasswordRequest asks for a reset code
type ForgotPasswordRequest struct {
	Email string `json:"email"` // Account email
}

// ResetPasswordRequest redeems a reset code
type ResetPasswordRequest struct {
	Email       string `json:"email"`        // Account email
	OTP         string `json:"otp"`          // One-time code
	NewPassword string `json:"new_password"` // Replacement password
}

// AuthUser is the user part of the login response
type AuthUser struct {
	ID       uint   `json:"id"`       // User ID
	Username string `json:"username"` // Username
	Email    string `json:"email"`    // Email
	Mobile   string `json:"mobile"`   // Mobile
	Role     string `json:"role"`     // User role
}

// AuthResponse is the login response
type AuthResponse struct {
	Token string   `json:"token"` // JWT token
	User  AuthUser `json:"user"`  // Authenticated user
}

// bindJSON binds the body or writes a 400
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		// If binding fails, return bad request
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "code": "InvalidArgument"})
		return false
	}
	return true
}

// SignupHandler registers a new user account
func SignupHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		user, err := svc.Signup(c.Request.Context(), auth.SignupInput{
			Username: req.Username,
			Mobile:   req.Mobile,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		token, user, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: authUser(user)})
	}
}

// ForgotPasswordHandler sends a reset code when the email is registered
func ForgotPasswordHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		// Same answer whether or not the account exists
		c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a reset code has been sent"})
	}
}

// ResetPasswordHandler replaces the password given a valid code
func ResetPasswordHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
	}
}

func authUser(u *domain.User) AuthUser {
	return AuthUser{ID: u.ID, Username: u.Username, Email: u.Email, Mobile: u.Mobile, Role: u.Role}
}
