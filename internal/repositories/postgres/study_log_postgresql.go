package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"gorm.io/gorm"
)

type studyLogPostgreSQL struct {
	db *gorm.DB
}

func NewStudyLogPostgreSQL(db *gorm.DB) repositories.StudyLogRepository {
	return &studyLogPostgreSQL{db: db}
}

func (r *studyLogPostgreSQL) Create(ctx context.Context, tx *gorm.DB, log *models.StudyLog) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Create(log).Error; err != nil {
		return handleDBError(err, "create study log")
	}
	return nil
}

func (r *studyLogPostgreSQL) GetByID(ctx context.Context, id uint) (*models.StudyLog, error) {
	var log models.StudyLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, handleDBError(err, "get study log by id")
	}
	return &log, nil
}

func (r *studyLogPostgreSQL) List(ctx context.Context, filters repositories.StudyLogFilters) ([]*models.StudyLog, int64, error) {
	var logs []*models.StudyLog
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.StudyLog{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count study logs")
	}

	query = query.Order(fmt.Sprintf("ended_at %s", sortDirection(filters.SortOrder))).Order("id")
	query = applyPagination(query, filters.Limit, filters.Offset)

	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, handleDBError(err, "list study logs")
	}

	return logs, total, nil
}

func (r *studyLogPostgreSQL) TotalsByClassroom(ctx context.Context, classroomID string) ([]repositories.StudyTotals, error) {
	var totals []repositories.StudyTotals
	err := r.db.WithContext(ctx).
		Model(&models.StudyLog{}).
		Select("username, COUNT(*) AS sessions, COALESCE(SUM(studied_seconds), 0) AS studied_seconds").
		Where("classroom_id = ?", classroomID).
		Group("username").
		Order("studied_seconds DESC").
		Order("username").
		Scan(&totals).Error
	if err != nil {
		return nil, handleDBError(err, "aggregate study totals")
	}
	return totals, nil
}

func (r *studyLogPostgreSQL) DeleteByClassroom(ctx context.Context, tx *gorm.DB, classroomID string) (int64, error) {
	db := getDB(r.db, tx)
	result := db.WithContext(ctx).Where("classroom_id = ?", classroomID).Delete(&models.StudyLog{})
	if result.Error != nil {
		return 0, handleDBError(result.Error, "delete study logs")
	}
	return result.RowsAffected, nil
}

func (r *studyLogPostgreSQL) applyFilters(query *gorm.DB, filters repositories.StudyLogFilters) *gorm.DB {
	if filters.ClassroomID != nil {
		query = query.Where("classroom_id = ?", *filters.ClassroomID)
	}
	if filters.Username != nil {
		query = query.Where("username = ?", *filters.Username)
	}
	if filters.Outcome != nil {
		query = query.Where("outcome = ?", *filters.Outcome)
	}
	if filters.DateFrom != nil {
		query = query.Where("ended_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("ended_at <= ?", *filters.DateTo)
	}
	return query
}
