package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"gorm.io/gorm"
)

// StudyLogFilters narrows study log queries
type StudyLogFilters struct {
	ClassroomID *string                `json:"classroom_id"`
	Username    *string                `json:"username"`
	Outcome     *models.SessionOutcome `json:"outcome"`
	DateFrom    *time.Time             `json:"date_from"`
	DateTo      *time.Time             `json:"date_to"`
	Limit       int                    `json:"limit"`
	Offset      int                    `json:"offset"`
	SortOrder   string                 `json:"sort_order"` // "asc", "desc" on ended_at
}

// StudyTotals aggregates study time per user
type StudyTotals struct {
	Username       string `json:"username"`
	Sessions       int64  `json:"sessions"`
	StudiedSeconds int64  `json:"studied_seconds"`
}

// StudyLogRepository persists finished study sessions
type StudyLogRepository interface {
	Create(ctx context.Context, tx *gorm.DB, log *models.StudyLog) error
	GetByID(ctx context.Context, id uint) (*models.StudyLog, error)
	List(ctx context.Context, filters StudyLogFilters) ([]*models.StudyLog, int64, error)
	TotalsByClassroom(ctx context.Context, classroomID string) ([]StudyTotals, error)
	DeleteByClassroom(ctx context.Context, tx *gorm.DB, classroomID string) (int64, error)
}
