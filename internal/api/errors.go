package api

import (
	"errors"   // Sentinel matching
	"net/http" // HTTP status codes
	"strings"  // Message cleanup

	"art_market/internal/domain" // Domain error sentinels

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// errorKinds maps each domain sentinel to its status and code, most specific first
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "UnsupportedMediaType"},
	{domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PayloadTooLarge"},
	{domain.ErrInvalidArgument, http.StatusBadRequest, "InvalidArgument"},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "Unauthenticated"},
	{domain.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{domain.ErrNotFound, http.StatusNotFound, "NotFound"},
	{domain.ErrAlreadyExists, http.StatusBadRequest, "AlreadyExists"},
	{domain.ErrTooManyRequests, http.StatusTooManyRequests, "TooManyRequests"},
	{domain.ErrDeliveryFailure, http.StatusBadGateway, "DeliveryFailure"},
	{domain.ErrStorageFailure, http.StatusInternalServerError, "StorageFailure"},
}

// Classify returns the HTTP status and error code for err
func Classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "Internal"
}

// respondError writes the error body for err and logs server-side failures
func respondError(c *gin.Context, err error) {
	status, code := Classify(err) // Map error to status
	msg := publicMessage(err)
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route that failed
			"code":  code,         // Error kind
			"error": err.Error(),  // Full error chain
		}).Error("Request failed")
		if status == http.StatusInternalServerError {
			msg = "Internal server error" // Hide storage internals
		}
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

// publicMessage strips sentinel text from err so only the human part remains
func publicMessage(err error) string {
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		return fe.Reason // Field errors carry their own reason
	}
	msg := err.Error()
	for _, k := range errorKinds {
		s := k.err.Error()
		msg = strings.TrimPrefix(msg, s+": ")
		msg = strings.TrimSuffix(msg, ": "+s)
	}
	if msg == "" {
		return "Request failed"
	}
	return strings.ToUpper(msg[:1]) + msg[1:] // Capitalize the first letter
}
