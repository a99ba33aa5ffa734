package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/spaced_repetition"
	"github.com/example/wordsync/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath   string // Path to the Excel or CSV file
	Dict       string // Dictionary the words are scheduled under
	WordColumn string // Column with the word
	DictColumn string // Optional column overriding Dict per row
	SheetName  string // Name of the sheet to import
	StartRow   int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		WordColumn: "A",
		SheetName:  "Sheet1",
		StartRow:   2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int // already scheduled
	Errors         []string
}

// ImportWords schedules every word of an Excel or CSV word list that is not
// scheduled yet. New records are due immediately. All rows are written in
// one transaction.
func ImportWords(ctx context.Context, store *database.Store, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readSheet(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	err = store.RunInTransaction(ctx, []database.Collection{database.CollectionSchedule}, func(tx *database.Tx) error {
		repo := tx.Schedule()
		for i, row := range rows {
			rowNum := i + 1
			if rowNum < config.StartRow {
				continue
			}
			result.TotalProcessed++

			word, dict := parseRow(row, config)
			if word == "" {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: word cannot be empty", rowNum))
				continue
			}
			if dict == "" {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: no dictionary for %q", rowNum, word))
				continue
			}

			existing, err := repo.Get(ctx, models.WordKey{Word: word, Dict: dict})
			if err != nil {
				return err
			}
			if existing != nil {
				result.Skipped++
				continue
			}
			if err := repo.Put(ctx, spaced_repetition.NewRecord(word, dict)); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import words: %w", err)
	}
	return result, nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(row []string, config ImportConfig) (word, dict string) {
	if colIdx := columnToIndex(config.WordColumn); colIdx >= 0 && colIdx < len(row) {
		word = cleanWord(row[colIdx])
	}
	dict = config.Dict
	if config.DictColumn != "" {
		if colIdx := columnToIndex(config.DictColumn); colIdx >= 0 && colIdx < len(row) {
			if d := strings.TrimSpace(row[colIdx]); d != "" {
				dict = d
			}
		}
	}
	return word, dict
}

// cleanWord drops trailing notes in parentheses, "go (went, gone)" → "go"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
