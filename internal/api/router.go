package api

import (
	"context"  // Health check timeout
	"net/http" // HTTP status codes
	"time"     // Time durations

	"art_market/internal/auth"       // Account service
	"art_market/internal/blob"       // Image URL prefix
	"art_market/internal/events"     // Listing event bus
	"art_market/internal/listing"    // Listing service
	"art_market/internal/middleware" // Custom package for middleware
	"art_market/internal/store"      // User repository

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// Deps are the services the router dispatches to
type Deps struct {
	DB          *gorm.DB         // Database, also used by AdminOnly
	Redis       *redis.Client    // Cache
	Users       *store.UserStore // Admin user listing and listing write roles
	Auth        *auth.Service    // Account operations
	Listings    *listing.Service // Listing operations and health counters
	Bus         *events.Bus      // Real-time subscribers
	JWTSecret   string           // Token signing key
	CORSOrigins []string         // Allowed origins; "*" allows all
	UploadDir   string           // Served at /uploads when set
	Heartbeat   time.Duration    // SSE ping interval
}

// NewRouter builds the gin engine with every route
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, err
	}
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(d.CORSOrigins)))
	}
	r.MaxMultipartMemory = 8 << 20 // Uploads are capped well below this
	if d.UploadDir != "" {
		r.Static(blob.URLPath, d.UploadDir) // Locally stored images
	}

	r.GET("/healthz", HealthHandler(d.DB, d.Redis, d.Listings, d.Bus))

	// Auth routes
	authGroup := r.Group("/auth")
	authGroup.POST("/signup", SignupHandler(d.Auth))                  // Registration endpoint
	authGroup.POST("/login", LoginHandler(d.Auth))                    // Login endpoint
	authGroup.POST("/forgot-password", ForgotPasswordHandler(d.Auth)) // Reset code request
	authGroup.POST("/reset-password", ResetPasswordHandler(d.Auth))   // Reset code redemption

	jwtAuth := middleware.JWTAuthMiddleware(d.JWTSecret)

	// Profile routes (protected by JWT)
	userGroup := r.Group("/users", jwtAuth)
	userGroup.GET("/me", GetProfileHandler(d.Auth))      // Current profile
	userGroup.PATCH("/me", UpdateProfileHandler(d.Auth)) // Edit profile

	// Listing routes, reads are public
	r.GET("/listings", ListListingsHandler(d.Listings, d.Redis))
	r.GET("/listings/:id", GetListingHandler(d.Listings))
	listingGroup := r.Group("/listings", jwtAuth)
	listingGroup.POST("", CreateListingHandler(d.Listings, d.Users, d.Redis))       // Upload endpoint
	listingGroup.PATCH("/:id", UpdateListingHandler(d.Listings, d.Users, d.Redis))  // Update endpoint
	listingGroup.DELETE("/:id", DeleteListingHandler(d.Listings, d.Users, d.Redis)) // Delete endpoint

	r.GET("/events/listings", ListingEventsHandler(d.Bus, d.Heartbeat)) // Real-time stream

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin", jwtAuth, middleware.AdminOnlyMiddleware(d.DB))
	adminGroup.GET("/users", ListUsersHandler(d.Users, d.Redis)) // List users endpoint

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false // Wildcard origins cannot carry credentials
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// HealthHandler reports whether the database and Redis answer, along with
// listing and event stream counters
func HealthHandler(db *gorm.DB, rdb *redis.Client, listings *listing.Service, bus *events.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "database"})
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "redis"})
			return
		}
		total, err := listings.Count(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "database"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"listings":       total,         // Stored listings
			"subscribers":    bus.Count(),   // Open event streams
			"dropped_events": bus.Dropped(), // Events skipped for slow subscribers
		})
	}
}
