package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/wordsync/pkg/models"
)

// LedgerRepository handles the append-only points ledger
type LedgerRepository struct {
	q sqlx.ExtContext
}

// Get returns the entry for key or nil if there is none
func (r *LedgerRepository) Get(ctx context.Context, key models.LedgerKey) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	query := r.q.Rebind(`SELECT occurred_at, reason_code, points, detail FROM ledger_entries
		WHERE occurred_at = ? AND reason_code = ?`)
	err := sqlx.GetContext(ctx, r.q, &e, query, key.Timestamp, key.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &e, nil
}

// Insert adds the entry unless one with the same dedup key exists.
// It reports whether a row was written.
func (r *LedgerRepository) Insert(ctx context.Context, e models.LedgerEntry) (bool, error) {
	query := r.q.Rebind(`
		INSERT INTO ledger_entries (occurred_at, reason_code, points, detail)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (occurred_at, reason_code) DO NOTHING
	`)
	res, err := r.q.ExecContext(ctx, query, e.Timestamp, e.Reason, e.Points, e.Detail)
	if err != nil {
		return false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return affected(res)
}

// List returns every entry, oldest first
func (r *LedgerRepository) List(ctx context.Context) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	query := `SELECT occurred_at, reason_code, points, detail FROM ledger_entries ORDER BY occurred_at, reason_code`
	if err := sqlx.SelectContext(ctx, r.q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return out, nil
}

// Balance returns the sum of all points
func (r *LedgerRepository) Balance(ctx context.Context) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(points), 0) FROM ledger_entries`
	if err := sqlx.GetContext(ctx, r.q, &total, query); err != nil {
		return 0, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return total, nil
}

// AchievementRepository handles achievement unlocks
type AchievementRepository struct {
	q sqlx.ExtContext
}

// Get returns the unlock for id or nil if there is none
func (r *AchievementRepository) Get(ctx context.Context, id string) (*models.AchievementUnlock, error) {
	var a models.AchievementUnlock
	query := r.q.Rebind(`SELECT achievement_id, unlocked_at FROM achievement_unlocks WHERE achievement_id = ?`)
	err := sqlx.GetContext(ctx, r.q, &a, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement %s: %w", id, err)
	}
	return &a, nil
}

// Put inserts or replaces the unlock. Callers decide which time wins.
func (r *AchievementRepository) Put(ctx context.Context, a models.AchievementUnlock) error {
	query := r.q.Rebind(`
		INSERT INTO achievement_unlocks (achievement_id, unlocked_at)
		VALUES (?, ?)
		ON CONFLICT (achievement_id) DO UPDATE SET unlocked_at = excluded.unlocked_at
	`)
	if _, err := r.q.ExecContext(ctx, query, a.AchievementID, a.UnlockedAt); err != nil {
		return fmt.Errorf("failed to put achievement %s: %w", a.AchievementID, err)
	}
	return nil
}

// List returns every unlock
func (r *AchievementRepository) List(ctx context.Context) ([]models.AchievementUnlock, error) {
	var out []models.AchievementUnlock
	query := `SELECT achievement_id, unlocked_at FROM achievement_unlocks ORDER BY unlocked_at`
	if err := sqlx.SelectContext(ctx, r.q, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return out, nil
}
