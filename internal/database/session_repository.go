package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/wordsync/pkg/models"
)

const chapterColumns = `dict, chapter, started_at, elapsed_seconds, correct_count, wrong_count,
	total_word_count, correct_word_indexes, mode`

// ChapterSessionRepository handles chapter sessions. Sessions are append-only:
// there is no update or delete.
type ChapterSessionRepository struct {
	q sqlx.ExtContext
}

// Get returns the session for key or nil if there is none
func (r *ChapterSessionRepository) Get(ctx context.Context, key models.ChapterKey) (*models.ChapterSession, error) {
	var s models.ChapterSession
	query := r.q.Rebind(`SELECT ` + chapterColumns + ` FROM chapter_sessions
		WHERE dict = ? AND chapter = ? AND started_at = ?`)
	err := sqlx.GetContext(ctx, r.q, &s, query, key.Dict, key.Chapter, key.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter session: %w", err)
	}
	return &s, nil
}

// Insert adds the session unless one with the same identity exists.
// It reports whether a row was written.
func (r *ChapterSessionRepository) Insert(ctx context.Context, s models.ChapterSession) (bool, error) {
	if s.CorrectWordIndexes == nil {
		s.CorrectWordIndexes = models.IntList{}
	}
	query := r.q.Rebind(`
		INSERT INTO chapter_sessions (` + chapterColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dict, chapter, started_at) DO NOTHING
	`)
	res, err := r.q.ExecContext(ctx, query,
		s.Dict, s.Chapter, s.StartedAt, s.ElapsedSeconds, s.CorrectCount, s.WrongCount,
		s.TotalWordCount, s.CorrectWordIndexes, s.Mode)
	if err != nil {
		return false, fmt.Errorf("failed to insert chapter session: %w", err)
	}
	return affected(res)
}

// List returns every session, oldest first
func (r *ChapterSessionRepository) List(ctx context.Context) ([]models.ChapterSession, error) {
	var out []models.ChapterSession
	query := `SELECT ` + chapterColumns + ` FROM chapter_sessions ORDER BY started_at`
	if err := sqlx.SelectContext(ctx, r.q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list chapter sessions: %w", err)
	}
	return out, nil
}

const reviewColumns = `dict, created_at, is_finished, words`

// ReviewSessionRepository handles legacy review batches
type ReviewSessionRepository struct {
	q sqlx.ExtContext
}

// Get returns the session for key or nil if there is none
func (r *ReviewSessionRepository) Get(ctx context.Context, key models.ReviewKey) (*models.ReviewSession, error) {
	var s models.ReviewSession
	query := r.q.Rebind(`SELECT ` + reviewColumns + ` FROM review_sessions WHERE dict = ? AND created_at = ?`)
	err := sqlx.GetContext(ctx, r.q, &s, query, key.Dict, key.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review session: %w", err)
	}
	return &s, nil
}

// Insert adds the session unless one with the same identity exists
func (r *ReviewSessionRepository) Insert(ctx context.Context, s models.ReviewSession) (bool, error) {
	if s.Words == nil {
		s.Words = models.StringList{}
	}
	query := r.q.Rebind(`
		INSERT INTO review_sessions (` + reviewColumns + `)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (dict, created_at) DO NOTHING
	`)
	res, err := r.q.ExecContext(ctx, query, s.Dict, s.CreatedAt, s.IsFinished, s.Words)
	if err != nil {
		return false, fmt.Errorf("failed to insert review session: %w", err)
	}
	return affected(res)
}

// MarkFinished applies the one-way isFinished transition. It reports
// whether the session changed.
func (r *ReviewSessionRepository) MarkFinished(ctx context.Context, key models.ReviewKey) (bool, error) {
	query := r.q.Rebind(`
		UPDATE review_sessions SET is_finished = TRUE
		WHERE dict = ? AND created_at = ? AND is_finished = FALSE
	`)
	res, err := r.q.ExecContext(ctx, query, key.Dict, key.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to finish review session: %w", err)
	}
	return affected(res)
}

// List returns every session, oldest first
func (r *ReviewSessionRepository) List(ctx context.Context) ([]models.ReviewSession, error) {
	var out []models.ReviewSession
	query := `SELECT ` + reviewColumns + ` FROM review_sessions ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, r.q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list review sessions: %w", err)
	}
	return out, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}
