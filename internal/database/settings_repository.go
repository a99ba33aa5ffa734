package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/wordsync/pkg/models"
)

// SettingsRepository is a name/value table. It backs both the synced
// settings blob and the local sync metadata.
type SettingsRepository struct {
	q     sqlx.ExtContext
	table string
}

type settingRow struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

// GetValue returns the value stored under name, or "" if there is none
func (r *SettingsRepository) GetValue(ctx context.Context, name string) (string, error) {
	var value string
	query := r.q.Rebind(`SELECT value FROM ` + r.table + ` WHERE name = ?`)
	err := sqlx.GetContext(ctx, r.q, &value, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s %q: %w", r.table, name, err)
	}
	return value, nil
}

// SetValue stores value under name
func (r *SettingsRepository) SetValue(ctx context.Context, name, value string) error {
	query := r.q.Rebind(`
		INSERT INTO ` + r.table + ` (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value
	`)
	if _, err := r.q.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to set %s %q: %w", r.table, name, err)
	}
	return nil
}

// Load returns every entry as a settings blob
func (r *SettingsRepository) Load(ctx context.Context) (models.Settings, error) {
	var rows []settingRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT name, value FROM `+r.table); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", r.table, err)
	}
	out := make(models.Settings, len(rows))
	for _, row := range rows {
		out[row.Name] = json.RawMessage(row.Value)
	}
	return out, nil
}

// Set stores one raw JSON value
func (r *SettingsRepository) Set(ctx context.Context, name string, value json.RawMessage) error {
	return r.SetValue(ctx, name, string(value))
}
