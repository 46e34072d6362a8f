package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/report"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
)

func TestHistoryService(t *testing.T) {
	env := newTestEnv(t)
	classrooms := env.classrooms()
	history := NewHistoryService(env.repository(t), classrooms, env.clock, env.logger)
	ctx := context.Background()

	classroom, err := classrooms.Create(ctx, alice, &CreateClassroomRequest{Name: "Maths"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := classrooms.JoinByCode(ctx, bob, &JoinClassroomRequest{Code: classroom.InviteCode}); err != nil {
		t.Fatal(err)
	}

	bobName := "bob"
	for i, l := range []*models.StudyLog{
		{ClassroomID: classroom.ID, Username: "alice", Buddy: &bobName, PlannedMinutes: 25, StudiedSeconds: 1500, Outcome: models.OutcomeCompleted},
		{ClassroomID: classroom.ID, Username: "bob", PlannedMinutes: 25, StudiedSeconds: 300, Outcome: models.OutcomeEnded},
		{ClassroomID: "other", Username: "alice", PlannedMinutes: 10, StudiedSeconds: 600, Outcome: models.OutcomeCompleted},
	} {
		l.StartedAt = testStart.Add(time.Duration(i) * time.Hour)
		l.EndedAt = l.StartedAt.Add(time.Duration(l.StudiedSeconds) * time.Second)
		if err := history.Record(ctx, l); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	t.Run("classroom history for members", func(t *testing.T) {
		logs, total, err := history.ForClassroom(ctx, bob, classroom.ID, repositories.StudyLogFilters{})
		if err != nil {
			t.Fatalf("ForClassroom() error = %v", err)
		}
		if total != 2 || len(logs) != 2 {
			t.Errorf("ForClassroom() = %d/%d logs, want 2", len(logs), total)
		}
	})

	t.Run("classroom history hidden from non-members", func(t *testing.T) {
		_, _, err := history.ForClassroom(ctx, carol, classroom.ID, repositories.StudyLogFilters{})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("ForClassroom() error = %v, want forbidden", err)
		}
	})

	t.Run("user history spans classrooms", func(t *testing.T) {
		_, total, err := history.ForUser(ctx, "alice", repositories.StudyLogFilters{})
		if err != nil || total != 2 {
			t.Errorf("ForUser() total = %d, %v", total, err)
		}
	})

	t.Run("limit is capped", func(t *testing.T) {
		logs, total, err := history.ForUser(ctx, "alice", repositories.StudyLogFilters{Limit: 1})
		if err != nil || len(logs) != 1 || total != 2 {
			t.Errorf("ForUser(limit=1) = %d/%d, %v", len(logs), total, err)
		}
	})

	t.Run("report", func(t *testing.T) {
		rep, err := history.ClassroomReport(ctx, alice, classroom.ID)
		if err != nil {
			t.Fatalf("ClassroomReport() error = %v", err)
		}
		if !strings.HasSuffix(rep.Filename, ".xlsx") || !strings.Contains(rep.Filename, classroom.ID) {
			t.Errorf("filename = %q", rep.Filename)
		}

		f, err := excelize.OpenReader(bytes.NewReader(rep.Content))
		if err != nil {
			t.Fatalf("OpenReader() error = %v", err)
		}
		defer f.Close()

		roster, _ := f.GetRows(report.RosterSheet)
		if len(roster) != 3 {
			t.Errorf("roster rows = %d, want header + 2 members", len(roster))
		}
		sessions, _ := f.GetRows(report.SessionsSheet)
		if len(sessions) != 3 {
			t.Errorf("session rows = %d, want header + 2 sessions", len(sessions))
		}
		totals, _ := f.GetRows(report.TotalsSheet)
		if len(totals) != 3 || totals[1][0] != "alice" {
			t.Errorf("totals rows = %v", totals)
		}
	})

	t.Run("report requires membership", func(t *testing.T) {
		if _, err := history.ClassroomReport(ctx, carol, classroom.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("ClassroomReport() error = %v, want forbidden", err)
		}
	})
}
