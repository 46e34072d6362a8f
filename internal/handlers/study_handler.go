package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/services"
	"github.com/SAP-F-2025/study-buddy-service/internal/utils"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

type StudyHandler struct {
	BaseHandler
	classrooms services.ClassroomService
	presence   services.PresenceService
	sessions   services.StudySessionService
	history    services.HistoryService
	validator  *validator.Validator
}

// FindBuddiesResponse lists live classmates. Warnings carry storage failures
// that were tolerated.
type FindBuddiesResponse struct {
	Candidates []*models.PresenceRecord `json:"candidates"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

func NewStudyHandler(sm services.ServiceManager, validator *validator.Validator, logger utils.Logger) *StudyHandler {
	return &StudyHandler{
		BaseHandler: NewBaseHandler(logger),
		classrooms:  sm.Classroom(),
		presence:    sm.Presence(),
		sessions:    sm.StudySession(),
		history:     sm.History(),
		validator:   validator,
	}
}

// FindBuddies lists classmates looking for a partner and advertises the caller
// @Summary Find study buddies
// @Tags study
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param request body services.FindBuddiesRequest false "Selected duration"
// @Success 200 {object} FindBuddiesResponse
// @Router /classrooms/{id}/buddies [post]
func (h *StudyHandler) FindBuddies(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.FindBuddiesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "Invalid request payload", err)
			return
		}
	}

	classroom, err := h.classrooms.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	result, err := h.presence.FindBuddies(c.Request.Context(), actor.Username, classroom, req.Duration)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	resp := FindBuddiesResponse{Candidates: result.Candidates}
	if result.ReadErr != nil {
		resp.Warnings = append(resp.Warnings, "Could not load classmates")
	}
	if !result.Write.OK() {
		resp.Warnings = append(resp.Warnings, "Could not update your status")
	}
	c.JSON(http.StatusOK, resp)
}

// StartSession starts a study session with a buddy, or alone when no buddy is given
// @Summary Start study session
// @Tags study
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param request body services.StartSessionRequest true "Buddy and duration"
// @Success 201 {object} services.SessionView
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /classrooms/{id}/sessions [post]
func (h *StudyHandler) StartSession(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: verrs})
			return
		}
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	ctx := c.Request.Context()
	classroom, err := h.classrooms.Get(ctx, actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	// presence is only written once the device is reserved for this session
	view, err := h.sessions.Start(ctx, actor, func(ctx context.Context) (*models.Session, error) {
		if req.Buddy == "" {
			return h.presence.StudyAlone(classroom, req.Duration)
		}
		candidate, err := h.presence.Candidate(ctx, classroom.ID, req.Buddy)
		if err != nil {
			return nil, err
		}
		session, _, err := h.presence.StartStudySession(ctx, actor.Username, classroom, candidate, req.Duration)
		return session, err
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Study session started", "classroom_id", classroom.ID, "buddy", view.Session.BuddyName())
	c.JSON(http.StatusCreated, view)
}

// GetSession returns the device's study session
// @Summary Current study session
// @Tags study
// @Success 200 {object} services.SessionView
// @Failure 404 {object} ErrorResponse
// @Router /session [get]
func (h *StudyHandler) GetSession(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.sessions.Current(actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ToggleSession starts or pauses the timer
// @Summary Start or pause the timer
// @Tags study
// @Success 200 {object} services.SessionView
// @Router /session/toggle [post]
func (h *StudyHandler) ToggleSession(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.sessions.Toggle(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ResetSession restores the full duration
// @Summary Reset the timer
// @Tags study
// @Success 200 {object} services.SessionView
// @Router /session/reset [post]
func (h *StudyHandler) ResetSession(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.sessions.Reset(actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// EndSession stops the timer and withdraws the caller from matching.
// Ending an already ended session returns the ended view again.
// @Summary End the session
// @Tags study
// @Success 200 {object} services.SessionView
// @Failure 404 {object} ErrorResponse "No session was started on this device"
// @Router /session/end [post]
func (h *StudyHandler) EndSession(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.sessions.End(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.LogRequest(c, "Study session ended", "state", view.State)
	c.JSON(http.StatusOK, view)
}

// GetMyHistory lists the caller's finished sessions
// @Summary My study history
// @Tags study
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Offset"
// @Router /me/history [get]
func (h *StudyHandler) GetMyHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	logs, total, err := h.history.ForUser(c.Request.Context(), actor.Username, historyFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total})
}
