package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/services"
	"github.com/SAP-F-2025/study-buddy-service/internal/utils"
)

// SessionAuthMiddleware authenticates requests through the device's current-user pointer
type SessionAuthMiddleware struct {
	BaseHandler
	identity services.IdentityService
}

func NewSessionAuthMiddleware(identity services.IdentityService, logger utils.Logger) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{
		BaseHandler: NewBaseHandler(logger),
		identity:    identity,
	}
}

// AuthMiddleware rejects requests from devices nobody is logged in on
func (am *SessionAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := am.identity.Current(c.Request.Context(), c.GetString("device_id"))
		if err != nil {
			if errors.Is(err, services.ErrNotAuthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
					Message: "User not authenticated",
				})
				return
			}
			am.handleServiceError(c, err)
			c.Abort()
			return
		}

		// Set user information in context
		c.Set("user", user)
		c.Set("username", user.Username)

		c.Next()
	}
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetActorFromContext returns the logged in user on the calling device
func GetActorFromContext(c *gin.Context) (services.Actor, bool) {
	username := c.GetString("username")
	deviceID := c.GetString("device_id")
	if username == "" || deviceID == "" {
		return services.Actor{}, false
	}
	return services.Actor{DeviceID: deviceID, Username: username}, true
}

// requireActor writes a 401 and returns false when the request is anonymous
func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
	}
	return actor, ok
}
