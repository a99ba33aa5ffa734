// Package excel moves word lists and learning state in and out of
// spreadsheets.
package excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/spaced_repetition"
	"github.com/example/wordsync/pkg/models"
)

// Sheet names of an export
const (
	ScheduleSheet = "Schedule"
	ProgressSheet = "Progress"
)

var (
	scheduleHeader = []interface{}{"Word", "Dict", "Easiness", "Interval (days)", "Streak", "Next review", "Last reviewed", "Mastered"}
	progressHeader = []interface{}{"Word", "Dict", "Correct", "Wrong", "Mode", "Last activity"}
)

// ExportResult counts the rows written per sheet
type ExportResult struct {
	Schedule int
	Progress int
}

// Export writes the review schedule and the in-progress words to an xlsx file
func Export(ctx context.Context, store *database.Store, path string) (*ExportResult, error) {
	var (
		schedule []models.ScheduleRecord
		progress []models.WordProgress
	)
	cols := []database.Collection{database.CollectionSchedule, database.CollectionWords}
	err := store.RunInTransaction(ctx, cols, func(tx *database.Tx) error {
		var err error
		if schedule, err = tx.Schedule().List(ctx); err != nil {
			return err
		}
		progress, err = tx.WordProgress().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read local state: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the schedule sheet
	if err := f.SetSheetName(f.GetSheetName(0), ScheduleSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ProgressSheet); err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(schedule))
	for _, r := range schedule {
		rows = append(rows, []interface{}{
			r.Word, r.Dict, r.EasinessFactor, r.IntervalDays, r.ConsecutiveCorrect,
			r.NextReviewAt, formatTime(r.LastReviewedAt), spaced_repetition.IsMastered(r),
		})
	}
	if err := writeSheet(f, ScheduleSheet, scheduleHeader, rows); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, p := range progress {
		rows = append(rows, []interface{}{
			p.Word, p.Dict, p.CorrectCount, p.WrongCount, string(p.Mode), formatTime(p.LastActivityTime),
		})
	}
	if err := writeSheet(f, ProgressSheet, progressHeader, rows); err != nil {
		return nil, err
	}

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", path, err)
	}
	return &ExportResult{Schedule: len(schedule), Progress: len(progress)}, nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func formatTime(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return models.FromMillis(ms).UTC().Format("2006-01-02 15:04")
}
