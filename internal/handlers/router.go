package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-buddy-service/internal/services"
	"github.com/SAP-F-2025/study-buddy-service/internal/utils"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

const healthCheckTimeout = 3 * time.Second

type HandlerManager struct {
	serviceManager   services.ServiceManager
	authHandler      *AuthHandler
	classroomHandler *ClassroomHandler
	studyHandler     *StudyHandler
	authMiddleware   *SessionAuthMiddleware
	historyEnabled   bool
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:   serviceManager,
		authHandler:      NewAuthHandler(serviceManager.Identity(), logger),
		classroomHandler: NewClassroomHandler(serviceManager.Classroom(), serviceManager.History(), logger),
		studyHandler:     NewStudyHandler(serviceManager, validator, logger),
		authMiddleware:   NewSessionAuthMiddleware(serviceManager.Identity(), logger),
		historyEnabled:   serviceManager.History() != nil,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes - open
		auth := v1.Group("/auth")
		{
			auth.POST("/register", hm.authHandler.Register)
			auth.POST("/login", hm.authHandler.Login)
			auth.POST("/logout", hm.authHandler.Logout)
			auth.GET("/me", hm.authMiddleware.AuthMiddleware(), hm.authHandler.Me)
		}

		// Everything below requires a logged in device
		authed := v1.Group("")
		authed.Use(hm.authMiddleware.AuthMiddleware())

		classrooms := authed.Group("/classrooms")
		{
			classrooms.GET("", hm.classroomHandler.ListClassrooms)
			classrooms.POST("", hm.classroomHandler.CreateClassroom)
			classrooms.POST("/join", hm.classroomHandler.JoinClassroom)
			classrooms.DELETE("/:id", hm.classroomHandler.RemoveClassroom)
			classrooms.GET("/:id/invite", hm.classroomHandler.GetInviteCode)

			// Matching
			classrooms.POST("/:id/buddies", hm.studyHandler.FindBuddies)
			classrooms.POST("/:id/sessions", hm.studyHandler.StartSession)

			if hm.historyEnabled {
				classrooms.GET("/:id/history", hm.classroomHandler.GetHistory)
				classrooms.GET("/:id/report", hm.classroomHandler.GetReport)
			}
		}

		session := authed.Group("/session")
		{
			session.GET("", hm.studyHandler.GetSession)
			session.POST("/toggle", hm.studyHandler.ToggleSession)
			session.POST("/reset", hm.studyHandler.ResetSession)
			session.POST("/end", hm.studyHandler.EndSession)
		}

		if hm.historyEnabled {
			authed.GET("/me/history", hm.studyHandler.GetMyHistory)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		if err := hm.serviceManager.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "study-buddy-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "study-buddy-service",
		})
	})
}
