package report

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	RosterSheet   = "Roster"
	SessionsSheet = "Sessions"
	TotalsSheet   = "Totals"

	timeLayout = "2006-01-02 15:04"
)

// MemberTotal is one member's aggregate study time
type MemberTotal struct {
	Username       string
	Sessions       int64
	StudiedSeconds int64
}

var (
	rosterHeader   = []interface{}{"Member", "Role"}
	sessionsHeader = []interface{}{"Username", "Buddy", "Planned (min)", "Studied (min)", "Outcome", "Ended At"}
	totalsHeader   = []interface{}{"Username", "Sessions", "Studied (min)"}
)

// ClassroomReport renders the classroom roster and study history as an XLSX workbook
func ClassroomReport(classroom *models.Classroom, logs []*models.StudyLog, totals []MemberTotal) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RosterSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SessionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sessions sheet: %w", err)
	}
	if _, err := f.NewSheet(TotalsSheet); err != nil {
		return nil, fmt.Errorf("failed to create totals sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// Roster
	rows := make([][]interface{}, 0, len(classroom.Members))
	for _, member := range classroom.Members {
		role := "member"
		if classroom.IsOwner(member) {
			role = "owner"
		}
		rows = append(rows, []interface{}{member, role})
	}
	if err := writeSheet(f, RosterSheet, rosterHeader, rows, headerStyle); err != nil {
		return nil, err
	}

	// Sessions
	rows = make([][]interface{}, 0, len(logs))
	for _, log := range logs {
		buddy := ""
		if log.Buddy != nil {
			buddy = *log.Buddy
		}
		rows = append(rows, []interface{}{
			log.Username,
			buddy,
			log.PlannedMinutes,
			minutes(int64(log.StudiedSeconds)),
			string(log.Outcome),
			log.EndedAt.UTC().Format(timeLayout),
		})
	}
	if err := writeSheet(f, SessionsSheet, sessionsHeader, rows, headerStyle); err != nil {
		return nil, err
	}

	// Totals
	rows = make([][]interface{}, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []interface{}{t.Username, t.Sessions, minutes(t.StudiedSeconds)})
	}
	if err := writeSheet(f, TotalsSheet, totalsHeader, rows, headerStyle); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds the download name for a classroom report
func Filename(classroom *models.Classroom, at time.Time) string {
	return fmt.Sprintf("classroom-%s-%s.xlsx", classroom.ID, at.UTC().Format("20060102"))
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// minutes rounds seconds to one decimal place of minutes
func minutes(seconds int64) float64 {
	return float64(seconds*10/60) / 10
}
