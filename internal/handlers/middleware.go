package handlers

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	uuid2 "github.com/google/uuid"

	"github.com/SAP-F-2025/study-buddy-service/internal/utils"
)

const (
	HeaderDeviceID  = "X-Device-ID"
	HeaderRequestID = "X-Request-ID"

	maxDeviceIDLength = 128
)

// SetupMiddleware sets up common middleware for the Gin router
func SetupMiddleware(router *gin.Engine, logger utils.Logger) {
	// Request ID middleware
	router.Use(RequestIDMiddleware())

	// CORS middleware
	router.Use(CORSMiddleware())

	// Recovery middleware
	router.Use(gin.Recovery())

	// Device scope for the private storage partition
	router.Use(DeviceMiddleware())

	// Context logger middleware (adds logger with request_id and device_id to context)
	router.Use(utils.ContextLogger(logger))

	// Custom logging middleware
	router.Use(utils.LoggerMiddleware(logger))

	// Security headers middleware
	router.Use(SecurityMiddleware())
}

// SecurityMiddleware adds security headers
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// RequestIDMiddleware generates a unique request ID for each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid2.New().String()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// DeviceMiddleware resolves the caller's device. A device without an id gets a
// fresh one, returned in the response header so the client can keep it.
func DeviceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader(HeaderDeviceID))
		if deviceID == "" {
			deviceID = uuid2.New().String()
		} else if !validDeviceID(deviceID) {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid device id",
			})
			return
		}
		c.Header(HeaderDeviceID, deviceID)
		c.Set("device_id", deviceID)
		c.Next()
	}
}

func validDeviceID(id string) bool {
	if len(id) > maxDeviceIDLength {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// CORSMiddleware provides CORS support
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Device-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, X-Device-ID")
		c.Header("Access-Control-Max-Age", "43200")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
