package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-buddy-service/internal/services"
	"github.com/SAP-F-2025/study-buddy-service/internal/utils"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps payloads that carry a message
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler holds what every handler shares
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs through the request scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Info(msg, args...)
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, services.ErrValidationFailed):
		resp := ErrorResponse{Message: errorMessage(err)}
		if errors.As(err, &verrs) {
			resp.Message = "Validation failed"
			resp.Details = verrs
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: errorMessage(err)})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied", Details: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: errorMessage(err)})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: errorMessage(err)})
	default:
		utils.FromContext(c, h.logger).Error("Unhandled service error", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
	_ = c.Error(err)
}

// badRequest reports an unparsable request body or parameter
func (h *BaseHandler) badRequest(c *gin.Context, msg string, err error) {
	resp := ErrorResponse{Message: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// queryInt reads a non-negative integer query parameter, falling back to def
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// errorMessage strips the category prefix added by the service sentinels
func errorMessage(err error) string {
	for _, base := range []error{
		services.ErrValidationFailed,
		services.ErrUnauthorized,
		services.ErrNotFound,
		services.ErrConflict,
	} {
		prefix := base.Error() + ": "
		if msg := err.Error(); len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return err.Error()
}
