// Package practice is the local write path: it turns practice outcomes into
// word progress, schedule and ledger records.
package practice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/spaced_repetition"
	"github.com/example/wordsync/pkg/models"
)

// Points credited to the ledger
const (
	PointsWordCorrect     = 10
	PointsWordMastered    = 30
	PointsChapterFinished = 20
	PointsReviewFinished  = 20
)

// WriteNotifier is told about every committed local write
type WriteNotifier interface {
	NotifyLocalWrite()
}

// Attempt is one word typed to the end, possibly after some wrong tries
type Attempt struct {
	Word          string
	Dict          string
	Mode          models.PracticeMode
	WrongAttempts int
	Mistakes      models.Mistakes // letter position → wrong characters typed there
}

// Outcome is what RecordAttempt wrote
type Outcome struct {
	Progress *models.WordProgress // nil once the word is completed
	Schedule models.ScheduleRecord
	Quality  spaced_repetition.QualityResponse
	Points   int
}

// Completed reports whether the attempt finished the word
func (o Outcome) Completed() bool {
	return o.Progress == nil
}

// Service records practice activity
type Service struct {
	store    *database.Store
	notifier WriteNotifier
	sm       *spaced_repetition.SM2
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store *database.Store, notifier WriteNotifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		sm:       spaced_repetition.Default,
		log:      log.Named("practice"),
		now:      time.Now,
	}
}

// RecordAttempt updates the word's progress and schedule and credits points,
// all in one transaction. A word typed right CompletionThreshold times has
// its progress record deleted.
func (s *Service) RecordAttempt(ctx context.Context, a Attempt) (Outcome, error) {
	if a.Word == "" || a.Dict == "" {
		return Outcome{}, fmt.Errorf("attempt without word or dict")
	}
	if a.WrongAttempts < 0 {
		a.WrongAttempts = 0
	}

	now := s.now()
	key := models.WordKey{Word: a.Word, Dict: a.Dict}
	out := Outcome{Quality: spaced_repetition.Quality(a.WrongAttempts)}

	collections := []database.Collection{database.CollectionWords, database.CollectionSchedule, database.CollectionLedger}
	err := s.store.RunInTransaction(ctx, collections, func(tx *database.Tx) error {
		progress, err := tx.WordProgress().Get(ctx, key)
		if err != nil {
			return err
		}
		if progress == nil {
			progress = &models.WordProgress{Word: a.Word, Dict: a.Dict, Mistakes: models.Mistakes{}}
		}
		progress.WrongCount += a.WrongAttempts
		progress.CorrectCount++
		progress.LastActivityTime = models.Millis(now)
		progress.Mode = a.Mode
		progress.Mistakes = appendMistakes(progress.Mistakes, a.Mistakes)

		if progress.Completed() {
			if err := tx.WordProgress().Delete(ctx, key); err != nil {
				return err
			}
			progress = nil
		} else if err := tx.WordProgress().Put(ctx, *progress); err != nil {
			return err
		}
		out.Progress = progress

		schedule, err := tx.Schedule().Get(ctx, key)
		if err != nil {
			return err
		}
		if schedule == nil {
			rec := spaced_repetition.NewRecord(a.Word, a.Dict)
			schedule = &rec
		}
		out.Schedule = s.sm.Review(*schedule, out.Quality, now)
		if err := tx.Schedule().Put(ctx, out.Schedule); err != nil {
			return err
		}

		if a.WrongAttempts == 0 {
			if err := credit(ctx, tx, now, models.ReasonWordCorrect, PointsWordCorrect, key.String(), &out.Points); err != nil {
				return err
			}
		}
		if out.Completed() {
			return credit(ctx, tx, now, models.ReasonWordMastered, PointsWordMastered, key.String(), &out.Points)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("record attempt %s: %w", key, err)
	}

	s.log.Debug("attempt recorded",
		zap.String("word", key.String()),
		zap.Int("wrong_attempts", a.WrongAttempts),
		zap.Int("quality", int(out.Quality)),
		zap.Int("interval_days", out.Schedule.IntervalDays),
		zap.Bool("completed", out.Completed()))
	s.notify()
	return out, nil
}

// FinishChapter stores a finished chapter run. Runs are append-only; storing
// the same run twice credits points once.
func (s *Service) FinishChapter(ctx context.Context, session models.ChapterSession) (bool, error) {
	if session.StartedAt == 0 {
		session.StartedAt = models.Millis(s.now())
	}

	var inserted bool
	collections := []database.Collection{database.CollectionChapters, database.CollectionLedger}
	err := s.store.RunInTransaction(ctx, collections, func(tx *database.Tx) error {
		var err error
		if inserted, err = tx.Chapters().Insert(ctx, session); err != nil || !inserted {
			return err
		}
		detail := fmt.Sprintf("%s/%d", session.Dict, session.Chapter)
		return credit(ctx, tx, s.now(), models.ReasonChapterFinished, PointsChapterFinished, detail, nil)
	})
	if err != nil {
		return false, fmt.Errorf("finish chapter: %w", err)
	}
	if inserted {
		s.notify()
	}
	return inserted, nil
}

// StartReview opens a review batch over words
func (s *Service) StartReview(ctx context.Context, dict string, words []string) (models.ReviewSession, error) {
	session := models.ReviewSession{
		Dict:      dict,
		CreatedAt: models.Millis(s.now()),
		Words:     models.StringList(words),
	}
	if _, err := s.store.Reviews().Insert(ctx, session); err != nil {
		return models.ReviewSession{}, fmt.Errorf("start review: %w", err)
	}
	s.notify()
	return session, nil
}

// FinishReview marks a review batch finished. Finishing twice is a no-op.
func (s *Service) FinishReview(ctx context.Context, key models.ReviewKey) (bool, error) {
	var changed bool
	collections := []database.Collection{database.CollectionReviews, database.CollectionLedger}
	err := s.store.RunInTransaction(ctx, collections, func(tx *database.Tx) error {
		var err error
		if changed, err = tx.Reviews().MarkFinished(ctx, key); err != nil || !changed {
			return err
		}
		return credit(ctx, tx, s.now(), models.ReasonReviewFinished, PointsReviewFinished, key.Dict, nil)
	})
	if err != nil {
		return false, fmt.Errorf("finish review: %w", err)
	}
	if changed {
		s.notify()
	}
	return changed, nil
}

// Unlock records an achievement. An earlier unlock time is never replaced.
func (s *Service) Unlock(ctx context.Context, achievementID string) (models.AchievementUnlock, error) {
	unlock := models.AchievementUnlock{AchievementID: achievementID, UnlockedAt: models.Millis(s.now())}

	var changed bool
	err := s.store.RunInTransaction(ctx, []database.Collection{database.CollectionAchievements}, func(tx *database.Tx) error {
		cur, err := tx.Achievements().Get(ctx, achievementID)
		if err != nil {
			return err
		}
		if cur != nil && cur.UnlockedAt <= unlock.UnlockedAt {
			unlock = *cur
			return nil
		}
		changed = true
		return tx.Achievements().Put(ctx, unlock)
	})
	if err != nil {
		return models.AchievementUnlock{}, fmt.Errorf("unlock %s: %w", achievementID, err)
	}
	if changed {
		s.notify()
	}
	return unlock, nil
}

// Due returns up to limit schedule records due today, hardest first
func (s *Service) Due(ctx context.Context, limit int) ([]models.ScheduleRecord, error) {
	now := s.now()
	records, err := s.store.Schedule().ListDue(ctx, now.UTC().Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	return spaced_repetition.Due(records, now, limit), nil
}

func (s *Service) notify() {
	if s.notifier != nil {
		s.notifier.NotifyLocalWrite()
	}
}

// maxCreditShift bounds how far credit moves an entry past a taken key
const maxCreditShift = 1000

// credit appends a ledger entry for a new event. Every call is a distinct
// event, so when (timestamp, reason) is already taken the timestamp moves
// forward one millisecond until the key is free.
func credit(ctx context.Context, tx *database.Tx, at time.Time, reason string, points int, detail string, total *int) error {
	entry := models.LedgerEntry{
		Timestamp: models.Millis(at),
		Reason:    reason,
		Points:    points,
		Detail:    detail,
	}
	for i := 0; i < maxCreditShift; i++ {
		inserted, err := tx.Ledger().Insert(ctx, entry)
		if err != nil {
			return err
		}
		if inserted {
			if total != nil {
				*total += points
			}
			return nil
		}
		entry.Timestamp++
	}
	return fmt.Errorf("no free ledger key for %s near %d", reason, models.Millis(at))
}

func appendMistakes(dst, src models.Mistakes) models.Mistakes {
	out := dst.Clone()
	for pos, chars := range src {
		out[pos] = append(out[pos], chars...)
	}
	return out
}
