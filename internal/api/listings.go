package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error inspection
	"fmt"      // Cache key formatting
	"io"       // Reading the image part
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"art_market/internal/domain"     // Importing domain models
	"art_market/internal/listing"    // Listing service
	"art_market/internal/middleware" // Session identity
	"art_market/internal/store"      // Listing filters
	"art_market/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

const (
	listingsGenKey   = "listings:gen"               // Generation counter for the list cache
	listingsCacheTTL = 60 * time.Second             // List cache lifetime
	maxUploadBody    = listing.MaxImageSize + 1<<20 // Image limit plus room for the text fields
)

// ListingsPage is the paginated listings response
type ListingsPage struct {
	Listings   []domain.ListingView `json:"listings"`    // Newest first
	Page       int                  `json:"page"`        // Current page
	PageSize   int                  `json:"page_size"`   // Page size
	Total      int64                `json:"total"`       // Total number of listings
	TotalPages int                  `json:"total_pages"` // Total pages
	Cached     bool                 `json:"cached"`      // Whether served from cache
}

// roleSource resolves the stored account behind a session
type roleSource interface {
	GetByID(ctx context.Context, id uint) (*domain.User, error)
}

// caller builds the listing caller from the session. The role is read from
// the database so a demoted admin loses rights before the token expires.
func caller(c *gin.Context, users roleSource) (listing.Caller, error) {
	id, _, ok := middleware.CurrentUser(c)
	if !ok {
		return listing.Caller{}, fmt.Errorf("unauthorized: %w", domain.ErrUnauthenticated)
	}
	u, err := users.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return listing.Caller{}, fmt.Errorf("account no longer exists: %w", domain.ErrUnauthenticated)
		}
		return listing.Caller{}, err
	}
	return listing.Caller{ID: u.ID, Role: u.Role}, nil
}

// parseID reads the :id path parameter
func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.InvalidField("id", "Invalid listing id")
	}
	return uint(id), nil
}

// CreateListingHandler accepts a multipart upload and creates the listing
func CreateListingHandler(svc *listing.Service, users roleSource, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := caller(c, users) // Owner always comes from the session
		if err != nil {
			respondError(c, err)
			return
		}
		upload, err := readUpload(c)
		if err != nil {
			respondError(c, err)
			return
		}
		created, err := svc.Create(c.Request.Context(), who, upload)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateListings(rdb)
		c.JSON(http.StatusCreated, created.View()) // Return the stored record
	}
}

// readUpload parses the multipart body into a listing upload
func readUpload(c *gin.Context) (listing.Upload, error) {
	if c.Request.ContentLength > maxUploadBody {
		return listing.Upload{}, fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrPayloadTooLarge, maxUploadBody)
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody) // Bound the body
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return listing.Upload{}, fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrPayloadTooLarge, maxUploadBody)
		}
		return listing.Upload{}, fmt.Errorf("%w: invalid multipart form", domain.ErrInvalidArgument)
	}
	u := listing.Upload{
		Title:       c.PostForm("title"),
		Price:       c.PostForm("price"),
		Description: c.PostForm("description"),
		Dimensions:  c.PostForm("dimensions"),
		Material:    c.PostForm("material"),
		Owner:       c.PostForm("owner"), // Ignored by the service
	}
	files := form.File["image"]
	if len(files) == 0 {
		return u, nil // Validation reports the missing image
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return u, fmt.Errorf("%w: unreadable image part", domain.ErrInvalidArgument)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, listing.MaxImageSize+1)) // One extra byte detects oversize
	if err != nil {
		return u, fmt.Errorf("%w: unreadable image part", domain.ErrInvalidArgument)
	}
	u.Image = &listing.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Data:        data,
	}
	return u, nil
}

// ListListingsHandler returns listings newest first, with pagination and an optional status filter
func ListListingsHandler(svc *listing.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		f := store.ListingFilter{Status: c.Query("status")}
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil {
				f.Page = v // Set page if numeric
			}
		}
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil {
				f.PageSize = v // Set page size if numeric
			}
		}
		f = listing.NormalizeFilter(f) // Apply defaults and bounds

		cacheKey := ""
		if gen, err := utils.CacheGeneration(ctx, rdb, listingsGenKey); err == nil {
			cacheKey = fmt.Sprintf("listings:g%s:status=%s:page=%d:size=%d", gen, f.Status, f.Page, f.PageSize)
			var cached ListingsPage
			if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
				cached.Cached = true // Indicate response is from cache
				c.JSON(http.StatusOK, cached)
				return
			}
		} else {
			logrus.WithField("error", err.Error()).Warn("Listing cache unavailable")
		}

		items, total, err := svc.List(ctx, f)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := ListingsPage{
			Listings:   make([]domain.ListingView, len(items)),
			Page:       f.Page,
			PageSize:   f.PageSize,
			Total:      total,
			TotalPages: (int(total) + f.PageSize - 1) / f.PageSize, // Calculate total pages
		}
		for i, l := range items {
			resp.Listings[i] = l.View()
		}
		if cacheKey != "" {
			_ = utils.SetCache(ctx, rdb, cacheKey, resp, listingsCacheTTL) // Cache the response for future requests
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetListingHandler returns one listing by id
func GetListingHandler(svc *listing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		l, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, l.View())
	}
}

// UpdateListingHandler applies a partial update for the owner or an admin
func UpdateListingHandler(svc *listing.Service, users roleSource, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := caller(c, users)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := parseID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var patch listing.Patch // Bind JSON request to struct
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "code": "InvalidArgument"})
			return
		}
		updated, err := svc.Update(c.Request.Context(), who, id, patch)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateListings(rdb)
		c.JSON(http.StatusOK, updated.View())
	}
}

// DeleteListingHandler removes a listing for the owner or an admin
func DeleteListingHandler(svc *listing.Service, users roleSource, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := caller(c, users)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := parseID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := svc.Delete(c.Request.Context(), who, id); err != nil {
			respondError(c, err)
			return
		}
		invalidateListings(rdb)
		c.JSON(http.StatusOK, gin.H{"message": "Artwork deleted successfully"})
	}
}

// invalidateListings bumps the list cache generation after a write
func invalidateListings(rdb *redis.Client) {
	if err := utils.BumpCacheGeneration(context.Background(), rdb, listingsGenKey); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to invalidate listing cache")
	}
}
