package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
)

func newTestManager(t *testing.T) repositories.RepositoryManager {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "study.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	rm := NewRepositoryManager(RepositoryConfig{DB: db, LocalVerifier: repositories.NewBcryptVerifier(4)})
	if err := rm.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = rm.Shutdown(context.Background()) })
	return rm
}

func seedLog(classroom, user string, seconds int, outcome models.SessionOutcome, endedAt time.Time) *models.StudyLog {
	return &models.StudyLog{
		ClassroomID:    classroom,
		Username:       user,
		PlannedMinutes: 25,
		StudiedSeconds: seconds,
		Outcome:        outcome,
		Details:        datatypes.JSONMap{"solo": true},
		StartedAt:      endedAt.Add(-time.Duration(seconds) * time.Second),
		EndedAt:        endedAt,
	}
}

func TestStudyLogRepository_CreateAndList(t *testing.T) {
	rm := newTestManager(t)
	repo := rm.GetRepository().StudyLog()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	logs := []*models.StudyLog{
		seedLog("c1", "ana", 1500, models.OutcomeCompleted, base),
		seedLog("c1", "ben", 600, models.OutcomeEnded, base.Add(time.Hour)),
		seedLog("c1", "ana", 300, models.OutcomeEnded, base.Add(2*time.Hour)),
		seedLog("c2", "ana", 900, models.OutcomeCompleted, base.Add(3*time.Hour)),
	}
	for _, l := range logs {
		if err := repo.Create(ctx, nil, l); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if l.ID == 0 {
			t.Fatal("Create() should assign an id")
		}
	}

	got, err := repo.GetByID(ctx, logs[0].ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "ana" || got.Details["solo"] != true {
		t.Errorf("GetByID() = %+v", got)
	}

	if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrRecordNotFound", err)
	}

	classroom := "c1"
	list, total, err := repo.List(ctx, repositories.StudyLogFilters{ClassroomID: &classroom})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(list) != 3 {
		t.Fatalf("List(c1) = %d rows, total %d; want 3", len(list), total)
	}
	if list[0].EndedAt.Before(list[2].EndedAt) {
		t.Error("default order should be newest first")
	}

	user := "ana"
	outcome := models.OutcomeEnded
	list, total, err = repo.List(ctx, repositories.StudyLogFilters{Username: &user, Outcome: &outcome})
	if err != nil || total != 1 || len(list) != 1 || list[0].StudiedSeconds != 300 {
		t.Errorf("List(ana, ended) = %v, %d, %v", list, total, err)
	}

	list, total, err = repo.List(ctx, repositories.StudyLogFilters{Limit: 2, SortOrder: "asc"})
	if err != nil || total != 4 || len(list) != 2 || !list[0].EndedAt.Equal(base) {
		t.Errorf("List(limit 2 asc) = %d rows, total %d, %v", len(list), total, err)
	}
}

func TestStudyLogRepository_TotalsAndDelete(t *testing.T) {
	rm := newTestManager(t)
	repo := rm.GetRepository().StudyLog()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, l := range []*models.StudyLog{
		seedLog("c1", "ana", 1500, models.OutcomeCompleted, now),
		seedLog("c1", "ana", 300, models.OutcomeEnded, now),
		seedLog("c1", "ben", 600, models.OutcomeEnded, now),
		seedLog("c2", "cara", 60, models.OutcomeEnded, now),
	} {
		if err := repo.Create(ctx, nil, l); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	totals, err := repo.TotalsByClassroom(ctx, "c1")
	if err != nil {
		t.Fatalf("TotalsByClassroom() error = %v", err)
	}
	want := []repositories.StudyTotals{
		{Username: "ana", Sessions: 2, StudiedSeconds: 1800},
		{Username: "ben", Sessions: 1, StudiedSeconds: 600},
	}
	if len(totals) != len(want) {
		t.Fatalf("TotalsByClassroom() = %+v, want %+v", totals, want)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("totals[%d] = %+v, want %+v", i, totals[i], want[i])
		}
	}

	err = rm.GetRepository().WithTransaction(ctx, func(tx repositories.Repository) error {
		n, err := tx.StudyLog().DeleteByClassroom(ctx, nil, "c1")
		if err != nil {
			return err
		}
		if n != 3 {
			t.Errorf("DeleteByClassroom() = %d, want 3", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction() error = %v", err)
	}

	_, total, _ := repo.List(ctx, repositories.StudyLogFilters{})
	if total != 1 {
		t.Errorf("remaining logs = %d, want 1", total)
	}
}

func TestRepositoryManager(t *testing.T) {
	rm := newTestManager(t)
	if err := rm.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if rm.GetRepository().Credentials() == nil {
		t.Error("local verifier should be used without Casdoor")
	}

	empty := NewRepositoryManager(RepositoryConfig{})
	if err := empty.Initialize(); err == nil {
		t.Error("Initialize() without a database should fail")
	}
	if err := empty.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Initialize should fail")
	}
}
