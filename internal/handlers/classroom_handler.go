package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"github.com/SAP-F-2025/study-buddy-service/internal/services"
	"github.com/SAP-F-2025/study-buddy-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ClassroomHandler struct {
	BaseHandler
	classrooms services.ClassroomService
	history    services.HistoryService
}

// NewClassroomHandler builds the classroom endpoints. history may be nil.
func NewClassroomHandler(classrooms services.ClassroomService, history services.HistoryService, logger utils.Logger) *ClassroomHandler {
	return &ClassroomHandler{
		BaseHandler: NewBaseHandler(logger),
		classrooms:  classrooms,
		history:     history,
	}
}

// ListClassrooms returns the caller's classrooms
// @Summary List classrooms
// @Tags classrooms
// @Produce json
// @Success 200 {array} models.Classroom
// @Router /classrooms [get]
func (h *ClassroomHandler) ListClassrooms(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	classrooms, err := h.classrooms.List(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, classrooms)
}

// CreateClassroom creates a classroom owned by the caller
// @Summary Create classroom
// @Tags classrooms
// @Accept json
// @Produce json
// @Param request body services.CreateClassroomRequest true "Classroom"
// @Success 201 {object} models.Classroom
// @Failure 400 {object} ErrorResponse
// @Router /classrooms [post]
func (h *ClassroomHandler) CreateClassroom(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	classroom, err := h.classrooms.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, classroom)
}

// JoinClassroom joins a classroom by invite code
// @Summary Join classroom
// @Tags classrooms
// @Accept json
// @Produce json
// @Param request body services.JoinClassroomRequest true "Invite code"
// @Success 200 {object} models.Classroom
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /classrooms/join [post]
func (h *ClassroomHandler) JoinClassroom(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.JoinClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	classroom, err := h.classrooms.JoinByCode(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Joined classroom", "classroom_id", classroom.ID)
	c.JSON(http.StatusOK, classroom)
}

// RemoveClassroom deletes an owned classroom or leaves a joined one
// @Summary Remove classroom
// @Tags classrooms
// @Param id path string true "Classroom ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /classrooms/{id} [delete]
func (h *ClassroomHandler) RemoveClassroom(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	classroomID := c.Param("id")
	h.LogRequest(c, "Removing classroom", "classroom_id", classroomID)

	if err := h.classrooms.Remove(c.Request.Context(), actor, classroomID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Classroom removed"})
}

// GetInviteCode shows the classroom's invite code to members
// @Summary Get invite code
// @Tags classrooms
// @Param id path string true "Classroom ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} ErrorResponse
// @Router /classrooms/{id}/invite [get]
func (h *ClassroomHandler) GetInviteCode(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	code, err := h.classrooms.InviteCode(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inviteCode": code})
}

// GetHistory lists the classroom's finished sessions
// @Summary Classroom study history
// @Tags classrooms
// @Param id path string true "Classroom ID"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Offset"
// @Param outcome query string false "completed or ended"
// @Router /classrooms/{id}/history [get]
func (h *ClassroomHandler) GetHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	filters := historyFilters(c)
	logs, total, err := h.history.ForClassroom(c.Request.Context(), actor, c.Param("id"), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total})
}

// GetReport downloads the classroom report as an XLSX workbook
// @Summary Classroom report
// @Tags classrooms
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Classroom ID"
// @Router /classrooms/{id}/report [get]
func (h *ClassroomHandler) GetReport(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	rep, err := h.history.ClassroomReport(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rep.Filename))
	c.Data(http.StatusOK, xlsxContentType, rep.Content)
}

func historyFilters(c *gin.Context) repositories.StudyLogFilters {
	filters := repositories.StudyLogFilters{
		Limit:     queryInt(c, "limit", 0),
		Offset:    queryInt(c, "offset", 0),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	switch outcome := models.SessionOutcome(c.Query("outcome")); outcome {
	case models.OutcomeCompleted, models.OutcomeEnded:
		filters.Outcome = &outcome
	}
	return filters
}
