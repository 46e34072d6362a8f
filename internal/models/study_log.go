package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionOutcome string

const (
	OutcomeCompleted SessionOutcome = "completed" // countdown reached zero
	OutcomeEnded     SessionOutcome = "ended"     // user ended early
)

// StudyLog is the persisted summary of a finished study session
type StudyLog struct {
	ID             uint              `json:"id" gorm:"primaryKey"`
	ClassroomID    string            `json:"classroom_id" gorm:"not null;size:64;index"`
	Username       string            `json:"username" gorm:"not null;size:64;index"`
	Buddy          *string           `json:"buddy" gorm:"size:64"`
	PlannedMinutes int               `json:"planned_minutes" gorm:"not null"`
	StudiedSeconds int               `json:"studied_seconds" gorm:"not null"`
	Outcome        SessionOutcome    `json:"outcome" gorm:"not null;size:20"`
	Details        datatypes.JSONMap `json:"details,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	EndedAt        time.Time         `json:"ended_at" gorm:"index"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (StudyLog) TableName() string {
	return "study_logs"
}
