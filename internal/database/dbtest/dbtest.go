// Package dbtest opens throwaway stores for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/example/wordsync/internal/database"
)

// Open returns a fresh SQLite store under t.TempDir, closed on cleanup
func Open(t testing.TB) *database.Store {
	t.Helper()

	store, err := database.Open(database.Config{
		Type: database.TypeSQLite,
		Path: filepath.Join(t.TempDir(), "wordsync.db"),
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
