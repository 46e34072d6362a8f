package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"github.com/SAP-F-2025/study-buddy-service/internal/storage"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
)

// ===== REQUEST/RESPONSE DTOs =====

type RegisterRequest struct {
	Username string `json:"username" validate:"required,not_blank,min=3,max=64,username"`
	Password string `json:"password" validate:"required,not_blank,min=6,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,not_blank"`
	Password string `json:"password" validate:"required,not_blank"`
}

type CreateClassroomRequest struct {
	Name string `json:"name" validate:"required,not_blank,max=100"`
}

type JoinClassroomRequest struct {
	Code string `json:"code" validate:"required,not_blank,len=8,alphanum"`
}

type FindBuddiesRequest struct {
	Duration int `json:"duration" validate:"omitempty,study_duration"`
}

// StartSessionRequest starts a paired session when Buddy is set, a solo one otherwise
type StartSessionRequest struct {
	Buddy    string `json:"buddy,omitempty" validate:"omitempty,username"`
	Duration int    `json:"duration" validate:"omitempty,study_duration"`
}

// Actor identifies who is calling: the logged in user on a given device
type Actor struct {
	DeviceID string
	Username string
}

// FindResult is the outcome of entering the matching view. Read and write
// failures are reported but never turned into errors.
type FindResult struct {
	Candidates []*models.PresenceRecord `json:"candidates"`
	ReadErr    error                    `json:"-"`
	Write      storage.Result           `json:"-"`
}

// SessionView is the state of a device's study session
type SessionView struct {
	State            timer.State     `json:"state"`
	RemainingSeconds int             `json:"remainingSeconds"`
	TotalSeconds     int             `json:"totalSeconds"`
	Running          bool            `json:"running"`
	Session          *models.Session `json:"session,omitempty"`
	StartedAt        *time.Time      `json:"startedAt,omitempty"`
}

type ClassroomReport struct {
	Filename string
	Content  []byte
}

// ===== SERVICE INTERFACES =====

type IdentityService interface {
	Register(ctx context.Context, deviceID string, req *RegisterRequest) (*models.User, error)
	Login(ctx context.Context, deviceID string, req *LoginRequest) (*models.User, error)
	Logout(ctx context.Context, deviceID string) error
	Current(ctx context.Context, deviceID string) (*models.User, error)
}

type ClassroomService interface {
	Create(ctx context.Context, actor Actor, req *CreateClassroomRequest) (*models.Classroom, error)
	JoinByCode(ctx context.Context, actor Actor, req *JoinClassroomRequest) (*models.Classroom, error)
	Remove(ctx context.Context, actor Actor, classroomID string) error
	List(ctx context.Context, actor Actor) ([]*models.Classroom, error)
	Get(ctx context.Context, actor Actor, classroomID string) (*models.Classroom, error)
	InviteCode(ctx context.Context, actor Actor, classroomID string) (string, error)
}

type PresenceService interface {
	FindBuddies(ctx context.Context, username string, classroom *models.Classroom, selectedDuration int) (*FindResult, error)
	Candidate(ctx context.Context, classroomID, username string) (*models.PresenceRecord, error)
	StartStudySession(ctx context.Context, username string, classroom *models.Classroom, candidate *models.PresenceRecord, selectedDuration int) (*models.Session, storage.Result, error)
	StudyAlone(classroom *models.Classroom, selectedDuration int) (*models.Session, error)
	Heartbeat(ctx context.Context, username string, session *models.Session) storage.Result
	EndSession(ctx context.Context, username, classroomID string) storage.Result
}

// SessionPreparer matches the caller or starts a solo session once the device is reserved
type SessionPreparer func(ctx context.Context) (*models.Session, error)

// StudySessionService owns the running timers, one per device
type StudySessionService interface {
	Begin(ctx context.Context, actor Actor, session *models.Session) (*SessionView, error)
	Start(ctx context.Context, actor Actor, prepare SessionPreparer) (*SessionView, error)
	Current(actor Actor) (*SessionView, error)
	Toggle(ctx context.Context, actor Actor) (*SessionView, error)
	Reset(actor Actor) (*SessionView, error)
	End(ctx context.Context, actor Actor) (*SessionView, error)
	Shutdown(ctx context.Context)
}

type HistoryService interface {
	Record(ctx context.Context, log *models.StudyLog) error
	ForClassroom(ctx context.Context, actor Actor, classroomID string, filters repositories.StudyLogFilters) ([]*models.StudyLog, int64, error)
	ForUser(ctx context.Context, username string, filters repositories.StudyLogFilters) ([]*models.StudyLog, int64, error)
	ClassroomReport(ctx context.Context, actor Actor, classroomID string) (*ClassroomReport, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Identity() IdentityService
	Classroom() ClassroomService
	Presence() PresenceService
	StudySession() StudySessionService
	History() HistoryService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
