package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

// ErrCompletedRecord is returned when a word progress record that reached
// the completion threshold is written. Such records are deleted instead.
var ErrCompletedRecord = fmt.Errorf("%w: word progress reached completion threshold", syncerr.ErrPolicyViolation)

const wordProgressColumns = `word, dict, wrong_count, correct_count, mistakes, last_activity_time, mode`

// WordProgressRepository handles database operations for word progress
type WordProgressRepository struct {
	q sqlx.ExtContext
}

// Get returns the record for key or nil if there is none
func (r *WordProgressRepository) Get(ctx context.Context, key models.WordKey) (*models.WordProgress, error) {
	var p models.WordProgress
	query := r.q.Rebind(`SELECT ` + wordProgressColumns + ` FROM word_progress WHERE word = ? AND dict = ?`)
	err := sqlx.GetContext(ctx, r.q, &p, query, key.Word, key.Dict)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word progress %s: %w", key, err)
	}
	return &p, nil
}

// Put inserts or replaces the record
func (r *WordProgressRepository) Put(ctx context.Context, p models.WordProgress) error {
	if p.Completed() {
		return fmt.Errorf("put %s: %w", p.Key(), ErrCompletedRecord)
	}
	if p.Mistakes == nil {
		p.Mistakes = models.Mistakes{}
	}

	query := r.q.Rebind(`
		INSERT INTO word_progress (` + wordProgressColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (word, dict) DO UPDATE SET
			wrong_count = excluded.wrong_count,
			correct_count = excluded.correct_count,
			mistakes = excluded.mistakes,
			last_activity_time = excluded.last_activity_time,
			mode = excluded.mode
	`)
	_, err := r.q.ExecContext(ctx, query,
		p.Word, p.Dict, p.WrongCount, p.CorrectCount, p.Mistakes, p.LastActivityTime, p.Mode)
	if err != nil {
		return fmt.Errorf("failed to put word progress %s: %w", p.Key(), err)
	}
	return nil
}

// Delete removes the record for key
func (r *WordProgressRepository) Delete(ctx context.Context, key models.WordKey) error {
	query := r.q.Rebind(`DELETE FROM word_progress WHERE word = ? AND dict = ?`)
	if _, err := r.q.ExecContext(ctx, query, key.Word, key.Dict); err != nil {
		return fmt.Errorf("failed to delete word progress %s: %w", key, err)
	}
	return nil
}

// List returns every record
func (r *WordProgressRepository) List(ctx context.Context) ([]models.WordProgress, error) {
	var out []models.WordProgress
	query := `SELECT ` + wordProgressColumns + ` FROM word_progress ORDER BY dict, word`
	if err := sqlx.SelectContext(ctx, r.q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list word progress: %w", err)
	}
	return out, nil
}

// ListWithMistakes returns the records of dict that were typed wrong at least once
func (r *WordProgressRepository) ListWithMistakes(ctx context.Context, dict string) ([]models.WordProgress, error) {
	var out []models.WordProgress
	query := r.q.Rebind(`
		SELECT ` + wordProgressColumns + ` FROM word_progress
		WHERE dict = ? AND wrong_count > 0
		ORDER BY wrong_count DESC, word
	`)
	if err := sqlx.SelectContext(ctx, r.q, &out, query, dict); err != nil {
		return nil, fmt.Errorf("failed to list mistaken words: %w", err)
	}
	return out, nil
}
