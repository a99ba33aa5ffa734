package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/wordsync/pkg/models"
)

const scheduleColumns = `word, dict, easiness_factor, interval_days, consecutive_correct,
	next_review_at, last_reviewed_at`

// ScheduleRepository handles spaced repetition records
type ScheduleRepository struct {
	q sqlx.ExtContext
}

// Get returns the record for key or nil if there is none
func (r *ScheduleRepository) Get(ctx context.Context, key models.WordKey) (*models.ScheduleRecord, error) {
	var rec models.ScheduleRecord
	query := r.q.Rebind(`SELECT ` + scheduleColumns + ` FROM schedule_records WHERE word = ? AND dict = ?`)
	err := sqlx.GetContext(ctx, r.q, &rec, query, key.Word, key.Dict)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule record %s: %w", key, err)
	}
	return &rec, nil
}

// Put inserts or replaces the record
func (r *ScheduleRepository) Put(ctx context.Context, rec models.ScheduleRecord) error {
	query := r.q.Rebind(`
		INSERT INTO schedule_records (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (word, dict) DO UPDATE SET
			easiness_factor = excluded.easiness_factor,
			interval_days = excluded.interval_days,
			consecutive_correct = excluded.consecutive_correct,
			next_review_at = excluded.next_review_at,
			last_reviewed_at = excluded.last_reviewed_at
	`)
	_, err := r.q.ExecContext(ctx, query,
		rec.Word, rec.Dict, rec.EasinessFactor, rec.IntervalDays, rec.ConsecutiveCorrect,
		rec.NextReviewAt, rec.LastReviewedAt)
	if err != nil {
		return fmt.Errorf("failed to put schedule record %s: %w", rec.Key(), err)
	}
	return nil
}

// Delete removes the record for key
func (r *ScheduleRepository) Delete(ctx context.Context, key models.WordKey) error {
	query := r.q.Rebind(`DELETE FROM schedule_records WHERE word = ? AND dict = ?`)
	if _, err := r.q.ExecContext(ctx, query, key.Word, key.Dict); err != nil {
		return fmt.Errorf("failed to delete schedule record %s: %w", key, err)
	}
	return nil
}

// List returns every record
func (r *ScheduleRepository) List(ctx context.Context) ([]models.ScheduleRecord, error) {
	var out []models.ScheduleRecord
	query := `SELECT ` + scheduleColumns + ` FROM schedule_records ORDER BY dict, word`
	if err := sqlx.SelectContext(ctx, r.q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list schedule records: %w", err)
	}
	return out, nil
}

// ListDue returns the records whose next review date is on or before day
// (models.DateLayout). Records that were never scheduled are always due.
func (r *ScheduleRepository) ListDue(ctx context.Context, day string) ([]models.ScheduleRecord, error) {
	var out []models.ScheduleRecord
	query := r.q.Rebind(`
		SELECT ` + scheduleColumns + ` FROM schedule_records
		WHERE next_review_at <= ?
		ORDER BY next_review_at ASC
	`)
	if err := sqlx.SelectContext(ctx, r.q, &out, query, day); err != nil {
		return nil, fmt.Errorf("failed to get due records: %w", err)
	}
	return out, nil
}
