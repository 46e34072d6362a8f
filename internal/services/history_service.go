package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/report"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	reportLogLimit      = 10000
)

type historyService struct {
	repo       repositories.Repository
	classrooms ClassroomService
	clock      timer.Clock
	logger     *slog.Logger
}

func NewHistoryService(repo repositories.Repository, classrooms ClassroomService, clock timer.Clock, logger *slog.Logger) HistoryService {
	return &historyService{
		repo:       repo,
		classrooms: classrooms,
		clock:      clock,
		logger:     logger,
	}
}

func (s *historyService) Record(ctx context.Context, log *models.StudyLog) error {
	if err := s.repo.StudyLog().Create(ctx, nil, log); err != nil {
		return fmt.Errorf("failed to record study log: %w", err)
	}
	s.logger.Debug("Study log recorded", "id", log.ID, "username", log.Username, "outcome", log.Outcome)
	return nil
}

// ForClassroom lists a classroom's sessions; only members may read them
func (s *historyService) ForClassroom(ctx context.Context, actor Actor, classroomID string, filters repositories.StudyLogFilters) ([]*models.StudyLog, int64, error) {
	if _, err := s.classrooms.Get(ctx, actor, classroomID); err != nil {
		return nil, 0, err
	}
	filters.ClassroomID = &classroomID
	return s.list(ctx, filters)
}

func (s *historyService) ForUser(ctx context.Context, username string, filters repositories.StudyLogFilters) ([]*models.StudyLog, int64, error) {
	filters.Username = &username
	return s.list(ctx, filters)
}

func (s *historyService) ClassroomReport(ctx context.Context, actor Actor, classroomID string) (*ClassroomReport, error) {
	classroom, err := s.classrooms.Get(ctx, actor, classroomID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Building classroom report", "classroom_id", classroomID, "requested_by", actor.Username)

	logs, _, err := s.repo.StudyLog().List(ctx, repositories.StudyLogFilters{
		ClassroomID: &classroomID,
		Limit:       reportLogLimit,
		SortOrder:   "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load study logs: %w", err)
	}

	totals, err := s.repo.StudyLog().TotalsByClassroom(ctx, classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load study totals: %w", err)
	}
	memberTotals := make([]report.MemberTotal, 0, len(totals))
	for _, t := range totals {
		memberTotals = append(memberTotals, report.MemberTotal{
			Username:       t.Username,
			Sessions:       t.Sessions,
			StudiedSeconds: t.StudiedSeconds,
		})
	}

	content, err := report.ClassroomReport(classroom, logs, memberTotals)
	if err != nil {
		return nil, fmt.Errorf("failed to build classroom report: %w", err)
	}

	return &ClassroomReport{
		Filename: report.Filename(classroom, s.clock.Now()),
		Content:  content,
	}, nil
}

func (s *historyService) list(ctx context.Context, filters repositories.StudyLogFilters) ([]*models.StudyLog, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultHistoryLimit
	}
	if filters.Limit > maxHistoryLimit {
		filters.Limit = maxHistoryLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	logs, total, err := s.repo.StudyLog().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list study logs: %w", err)
	}
	return logs, total, nil
}
