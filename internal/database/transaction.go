package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/example/wordsync/internal/syncerr"
)

// Collection names a table group a transaction may write to
type Collection string

const (
	CollectionWords        Collection = "words"
	CollectionChapters     Collection = "chapters"
	CollectionReviews      Collection = "reviews"
	CollectionSchedule     Collection = "schedule"
	CollectionLedger       Collection = "ledger"
	CollectionAchievements Collection = "achievements"
	CollectionSettings     Collection = "settings"
	CollectionMeta         Collection = "meta"
)

// AllCollections lists every synced collection plus settings
var AllCollections = []Collection{
	CollectionWords,
	CollectionChapters,
	CollectionReviews,
	CollectionSchedule,
	CollectionLedger,
	CollectionAchievements,
	CollectionSettings,
}

// Tx is a transaction scoped to a fixed set of collections. Asking for a
// repository outside that scope is a programming error and panics.
type Tx struct {
	tx    *sqlx.Tx
	scope map[Collection]bool
}

func (t *Tx) require(c Collection) {
	if !t.scope[c] {
		panic(fmt.Sprintf("database: collection %q is not part of this transaction", c))
	}
}

func (t *Tx) WordProgress() *WordProgressRepository {
	t.require(CollectionWords)
	return &WordProgressRepository{q: t.tx}
}

func (t *Tx) Chapters() *ChapterSessionRepository {
	t.require(CollectionChapters)
	return &ChapterSessionRepository{q: t.tx}
}

func (t *Tx) Reviews() *ReviewSessionRepository {
	t.require(CollectionReviews)
	return &ReviewSessionRepository{q: t.tx}
}

func (t *Tx) Schedule() *ScheduleRepository {
	t.require(CollectionSchedule)
	return &ScheduleRepository{q: t.tx}
}

func (t *Tx) Ledger() *LedgerRepository {
	t.require(CollectionLedger)
	return &LedgerRepository{q: t.tx}
}

func (t *Tx) Achievements() *AchievementRepository {
	t.require(CollectionAchievements)
	return &AchievementRepository{q: t.tx}
}

func (t *Tx) Settings() *SettingsRepository {
	t.require(CollectionSettings)
	return &SettingsRepository{q: t.tx, table: "settings"}
}

func (t *Tx) Meta() *SettingsRepository {
	t.require(CollectionMeta)
	return &SettingsRepository{q: t.tx, table: "sync_meta"}
}

// RunInTransaction runs fn inside one transaction over the named
// collections. Either every write made through tx is committed or none is.
// Errors are reported as syncerr.ErrStoreTransaction.
func (s *Store) RunInTransaction(ctx context.Context, collections []Collection, fn func(tx *Tx) error) (err error) {
	if len(collections) == 0 {
		return fmt.Errorf("%w: no collections named", syncerr.ErrStoreTransaction)
	}

	scope := make(map[Collection]bool, len(collections))
	for _, c := range collections {
		scope[c] = true
	}

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin %v: %w", syncerr.ErrStoreTransaction, collections, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: sqlTx, scope: scope}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", zap.Error(rbErr))
		}
		if errors.Is(err, syncerr.ErrStoreTransaction) {
			return err
		}
		return fmt.Errorf("%w: %v: %w", syncerr.ErrStoreTransaction, collections, err)
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %v: %w", syncerr.ErrStoreTransaction, collections, err)
	}
	return nil
}

// Repositories bound to the connection, for single-statement reads and writes.

func (s *Store) WordProgress() *WordProgressRepository {
	return &WordProgressRepository{q: s.db}
}

func (s *Store) Chapters() *ChapterSessionRepository {
	return &ChapterSessionRepository{q: s.db}
}

func (s *Store) Reviews() *ReviewSessionRepository {
	return &ReviewSessionRepository{q: s.db}
}

func (s *Store) Schedule() *ScheduleRepository {
	return &ScheduleRepository{q: s.db}
}

func (s *Store) Ledger() *LedgerRepository {
	return &LedgerRepository{q: s.db}
}

func (s *Store) Achievements() *AchievementRepository {
	return &AchievementRepository{q: s.db}
}

func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{q: s.db, table: "settings"}
}

func (s *Store) Meta() *SettingsRepository {
	return &SettingsRepository{q: s.db, table: "sync_meta"}
}
