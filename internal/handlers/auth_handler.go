package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-buddy-service/internal/services"
	"github.com/SAP-F-2025/study-buddy-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	identity services.IdentityService
}

func NewAuthHandler(identity services.IdentityService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		identity:    identity,
	}
}

// Register creates an account and logs the device in
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterRequest true "Credentials"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	user, err := h.identity.Register(c.Request.Context(), c.GetString("device_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "User registered", "username", user.Username)
	c.JSON(http.StatusCreated, user)
}

// Login verifies credentials and logs the device in
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	user, err := h.identity.Login(c.Request.Context(), c.GetString("device_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Logout clears the device's current user
// @Summary Logout
// @Tags auth
// @Success 200 {object} SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.identity.Logout(c.Request.Context(), c.GetString("device_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Logged out"})
}

// Me returns the logged in user
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}
