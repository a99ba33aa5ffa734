package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

// CollectionReport counts what a merge pass did to one collection
type CollectionReport struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

func (c *CollectionReport) count(k ActionKind) {
	switch k {
	case Insert:
		c.Inserted++
	case Update:
		c.Updated++
	case Delete:
		c.Deleted++
	default:
		c.Unchanged++
	}
}

// Writes is the number of local rows the pass changed
func (c CollectionReport) Writes() int {
	return c.Inserted + c.Updated + c.Deleted
}

// Report summarizes one merge pass
type Report struct {
	Words        CollectionReport `json:"words"`
	Chapters     CollectionReport `json:"chapters"`
	Reviews      CollectionReport `json:"reviews"`
	Schedule     CollectionReport `json:"schedule"`
	Ledger       CollectionReport `json:"ledger"`
	Achievements CollectionReport `json:"achievements"`
	Settings     int              `json:"settingsRestored"`
	Rejected     int              `json:"rejected"`
}

// Writes is the number of local rows the pass changed
func (r Report) Writes() int {
	return r.Words.Writes() + r.Chapters.Writes() + r.Reviews.Writes() +
		r.Schedule.Writes() + r.Ledger.Writes() + r.Achievements.Writes() + r.Settings
}

// Reconciler applies a remote snapshot to the local store.
//
// Collections are merged in groups, one transaction per group, each scoped
// to the collections it touches:
//
//	words + schedule      per-word learning state
//	chapters + reviews    practice history
//	ledger + achievements gamification
//	settings
//
// A failing group rolls back as a whole and stops the pass. Groups that
// already committed stay applied; every policy is idempotent, so the next
// pass converges.
type Reconciler struct {
	store *database.Store
	log   *zap.Logger
}

func NewReconciler(store *database.Store, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, log: log.Named("merge")}
}

// Apply merges snap into the local store
func (r *Reconciler) Apply(ctx context.Context, snap Snapshot) (Report, error) {
	var report Report

	report.Rejected = len(snap.Rejected)
	for _, rej := range snap.Rejected {
		r.log.Warn("remote record rejected",
			zap.String("collection", rej.Collection),
			zap.Int("index", rej.Index),
			zap.Error(rej.Err))
	}

	groups := []struct {
		collections []database.Collection
		apply       func(ctx context.Context, tx *database.Tx, rep *Report) error
	}{
		{
			collections: []database.Collection{database.CollectionWords, database.CollectionSchedule},
			apply: func(ctx context.Context, tx *database.Tx, rep *Report) error {
				if err := r.mergeWords(ctx, tx.WordProgress(), snap.Words, &rep.Words); err != nil {
					return err
				}
				return r.mergeSchedule(ctx, tx.Schedule(), snap.Schedule, &rep.Schedule)
			},
		},
		{
			collections: []database.Collection{database.CollectionChapters, database.CollectionReviews},
			apply: func(ctx context.Context, tx *database.Tx, rep *Report) error {
				if err := r.mergeChapters(ctx, tx.Chapters(), snap.Chapters, &rep.Chapters); err != nil {
					return err
				}
				return r.mergeReviews(ctx, tx.Reviews(), snap.Reviews, &rep.Reviews)
			},
		},
		{
			collections: []database.Collection{database.CollectionLedger, database.CollectionAchievements},
			apply: func(ctx context.Context, tx *database.Tx, rep *Report) error {
				if err := r.mergeLedger(ctx, tx.Ledger(), snap.Ledger, &rep.Ledger); err != nil {
					return err
				}
				return r.mergeAchievements(ctx, tx.Achievements(), snap.Achievements, &rep.Achievements)
			},
		},
		{
			collections: []database.Collection{database.CollectionSettings},
			apply: func(ctx context.Context, tx *database.Tx, rep *Report) error {
				n, err := restoreSettings(ctx, tx.Settings(), snap.Settings)
				rep.Settings = n
				return err
			},
		},
	}

	for _, g := range groups {
		// counts of a rolled back group must not leak into the report
		staged := report
		err := r.store.RunInTransaction(ctx, g.collections, func(tx *database.Tx) error {
			return g.apply(ctx, tx, &staged)
		})
		if err != nil {
			return report, err
		}
		report = staged
	}

	r.log.Info("merge applied",
		zap.Int("writes", report.Writes()),
		zap.Int("rejected", report.Rejected))
	return report, nil
}

// step merges one record and returns what it did. Policy violations are
// reported as skips; any other error aborts the group.
func step[T any](log *zap.Logger, collection string, rec T, rep *CollectionReport, fn func(T) (ActionKind, error)) error {
	kind, err := fn(rec)
	if errors.Is(err, syncerr.ErrPolicyViolation) {
		rep.Skipped++
		log.Warn("merge skipped record", zap.String("collection", collection), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	rep.count(kind)
	return nil
}

func (r *Reconciler) mergeWords(ctx context.Context, repo *database.WordProgressRepository, remote []models.WordProgress, rep *CollectionReport) error {
	for _, rec := range remote {
		err := step(r.log, "words", rec, rep, func(rec models.WordProgress) (ActionKind, error) {
			if err := ValidateWordProgress(rec); err != nil {
				return Noop, err
			}
			local, err := repo.Get(ctx, rec.Key())
			if err != nil {
				return Noop, err
			}
			act := WordProgress(local, rec)
			switch act.Kind {
			case Insert, Update:
				err = repo.Put(ctx, act.Record)
			case Delete:
				err = repo.Delete(ctx, act.Record.Key())
			}
			return act.Kind, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) mergeSchedule(ctx context.Context, repo *database.ScheduleRepository, remote []models.ScheduleRecord, rep *CollectionReport) error {
	for _, rec := range remote {
		err := step(r.log, "schedule", rec, rep, func(rec models.ScheduleRecord) (ActionKind, error) {
			if err := ValidateSchedule(rec); err != nil {
				return Noop, err
			}
			local, err := repo.Get(ctx, rec.Key())
			if err != nil {
				return Noop, err
			}
			act := Schedule(local, deriveNextReview(rec))
			if act.Kind == Insert || act.Kind == Update {
				err = repo.Put(ctx, act.Record)
			}
			return act.Kind, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) mergeChapters(ctx context.Context, repo *database.ChapterSessionRepository, remote []models.ChapterSession, rep *CollectionReport) error {
	for _, rec := range remote {
		err := step(r.log, "chapters", rec, rep, func(rec models.ChapterSession) (ActionKind, error) {
			if err := ValidateChapterSession(rec); err != nil {
				return Noop, err
			}
			local, err := repo.Get(ctx, rec.Key())
			if err != nil {
				return Noop, err
			}
			act := ChapterSession(local, rec)
			if act.Kind == Insert {
				_, err = repo.Insert(ctx, act.Record)
			}
			return act.Kind, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) mergeReviews(ctx context.Context, repo *database.ReviewSessionRepository, remote []models.ReviewSession, rep *CollectionReport) error {
	for _, rec := range remote {
		err := step(r.log, "reviews", rec, rep, func(rec models.ReviewSession) (ActionKind, error) {
			if err := ValidateReviewSession(rec); err != nil {
				return Noop, err
			}
			local, err := repo.Get(ctx, rec.Key())
			if err != nil {
				return Noop, err
			}
			act := ReviewSession(local, rec)
			switch act.Kind {
			case Insert:
				_, err = repo.Insert(ctx, act.Record)
			case Update:
				_, err = repo.MarkFinished(ctx, act.Record.Key())
			}
			return act.Kind, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) mergeLedger(ctx context.Context, repo *database.LedgerRepository, remote []models.LedgerEntry, rep *CollectionReport) error {
	for _, rec := range remote {
		err := step(r.log, "ledger", rec, rep, func(rec models.LedgerEntry) (ActionKind, error) {
			if err := ValidateLedgerEntry(rec); err != nil {
				return Noop, err
			}
			local, err := repo.Get(ctx, rec.Key())
			if err != nil {
				return Noop, err
			}
			act := LedgerEntry(local, rec)
			if act.Kind == Insert {
				_, err = repo.Insert(ctx, act.Record)
			}
			return act.Kind, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) mergeAchievements(ctx context.Context, repo *database.AchievementRepository, remote []models.AchievementUnlock, rep *CollectionReport) error {
	for _, rec := range remote {
		err := step(r.log, "achievements", rec, rep, func(rec models.AchievementUnlock) (ActionKind, error) {
			if err := ValidateAchievement(rec); err != nil {
				return Noop, err
			}
			local, err := repo.Get(ctx, rec.AchievementID)
			if err != nil {
				return Noop, err
			}
			act := Achievement(local, rec)
			if act.Kind == Insert || act.Kind == Update {
				err = repo.Put(ctx, act.Record)
			}
			return act.Kind, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// restoreSettings copies every non-empty remote settings value that differs
// from the local one. Local values without a remote counterpart are kept.
func restoreSettings(ctx context.Context, repo *database.SettingsRepository, remote models.Settings) (int, error) {
	if len(remote) == 0 {
		return 0, nil
	}
	local, err := repo.Load(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for name, value := range remote {
		if models.IsEmptyValue(value) {
			continue
		}
		if cur, ok := local[name]; ok && bytes.Equal(bytes.TrimSpace(cur), bytes.TrimSpace(value)) {
			continue
		}
		if err := repo.Set(ctx, name, value); err != nil {
			return restored, fmt.Errorf("restore setting %q: %w", name, err)
		}
		restored++
	}
	return restored, nil
}
