// Package merge reconciles a local collection with a remote snapshot of the
// same collection.
//
// Every entity has an isolated policy of the form
//
//	func(local *T, remote T) Action[T]
//
// where local is nil when the identity is unknown locally. Policies do no
// I/O; the Reconciler applies their actions to the store. Every policy is
// idempotent: feeding it the result of its own previous action yields Noop.
package merge

import (
	"fmt"
	"maps"
	"slices"

	"github.com/example/wordsync/internal/spaced_repetition"
	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

// ActionKind is the local write a policy asks for
type ActionKind int

const (
	Noop ActionKind = iota
	Insert
	Update
	Delete
)

func (k ActionKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "noop"
	}
}

// Action is the outcome of a merge policy. Record holds the value to write
// for Insert and Update, and the identity to remove for Delete.
type Action[T any] struct {
	Kind   ActionKind
	Record T
}

func noop[T any]() Action[T] {
	return Action[T]{Kind: Noop}
}

// WordProgress merges per (word, dict): counters and activity time take the
// maximum of both sides. Mistakes and mode come from the side with more
// wrong answers; on a tie local wins, since it holds the most recent input
// method state. This tie-break is a policy choice carried over as is.
// A merged record that reaches the completion threshold is deleted.
func WordProgress(local *models.WordProgress, remote models.WordProgress) Action[models.WordProgress] {
	if local == nil {
		if remote.Completed() {
			return noop[models.WordProgress]()
		}
		remote.Mistakes = remote.Mistakes.Clone()
		return Action[models.WordProgress]{Kind: Insert, Record: remote}
	}

	merged := *local
	merged.WrongCount = max(local.WrongCount, remote.WrongCount)
	merged.CorrectCount = max(local.CorrectCount, remote.CorrectCount)
	merged.LastActivityTime = max(local.LastActivityTime, remote.LastActivityTime)
	if remote.WrongCount > local.WrongCount {
		merged.Mistakes = remote.Mistakes.Clone()
		merged.Mode = remote.Mode
	}

	if merged.Completed() {
		return Action[models.WordProgress]{Kind: Delete, Record: merged}
	}
	if wordProgressEqual(merged, *local) {
		return noop[models.WordProgress]()
	}
	return Action[models.WordProgress]{Kind: Update, Record: merged}
}

// ChapterSession is append-only: insert when absent, never touch otherwise.
func ChapterSession(local *models.ChapterSession, remote models.ChapterSession) Action[models.ChapterSession] {
	if local != nil {
		return noop[models.ChapterSession]()
	}
	return Action[models.ChapterSession]{Kind: Insert, Record: remote}
}

// ReviewSession inserts when absent. The only update it allows is the
// false → true transition of IsFinished.
func ReviewSession(local *models.ReviewSession, remote models.ReviewSession) Action[models.ReviewSession] {
	if local == nil {
		return Action[models.ReviewSession]{Kind: Insert, Record: remote}
	}
	if remote.IsFinished && !local.IsFinished {
		finished := *local
		finished.IsFinished = true
		return Action[models.ReviewSession]{Kind: Update, Record: finished}
	}
	return noop[models.ReviewSession]()
}

// Schedule keeps whichever side was reviewed strictly later, as a whole
// record. Ties keep local.
func Schedule(local *models.ScheduleRecord, remote models.ScheduleRecord) Action[models.ScheduleRecord] {
	if local == nil {
		return Action[models.ScheduleRecord]{Kind: Insert, Record: remote}
	}
	if remote.LastReviewedAt > local.LastReviewedAt {
		return Action[models.ScheduleRecord]{Kind: Update, Record: remote}
	}
	return noop[models.ScheduleRecord]()
}

// LedgerEntry inserts only when no entry shares the (timestamp, reason) key,
// so repeated syncs never credit points twice.
func LedgerEntry(local *models.LedgerEntry, remote models.LedgerEntry) Action[models.LedgerEntry] {
	if local != nil {
		return noop[models.LedgerEntry]()
	}
	return Action[models.LedgerEntry]{Kind: Insert, Record: remote}
}

// Achievement keeps the earliest unlock time. Once unlocked the time can
// only move earlier.
func Achievement(local *models.AchievementUnlock, remote models.AchievementUnlock) Action[models.AchievementUnlock] {
	if local == nil {
		return Action[models.AchievementUnlock]{Kind: Insert, Record: remote}
	}
	if remote.UnlockedAt < local.UnlockedAt {
		return Action[models.AchievementUnlock]{Kind: Update, Record: remote}
	}
	return noop[models.AchievementUnlock]()
}

func wordProgressEqual(a, b models.WordProgress) bool {
	return a.Word == b.Word &&
		a.Dict == b.Dict &&
		a.WrongCount == b.WrongCount &&
		a.CorrectCount == b.CorrectCount &&
		a.LastActivityTime == b.LastActivityTime &&
		a.Mode == b.Mode &&
		maps.EqualFunc(a.Mistakes, b.Mistakes, slices.Equal[[]string])
}

// Validation of incoming records. A record that fails is skipped on its
// own; the rest of the pass continues.

func violation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", syncerr.ErrPolicyViolation, fmt.Sprintf(format, args...))
}

func ValidateWordProgress(p models.WordProgress) error {
	switch {
	case p.Word == "" || p.Dict == "":
		return violation("word progress without identity")
	case p.WrongCount < 0 || p.CorrectCount < 0:
		return violation("word progress %s has negative counters", p.Key())
	}
	return nil
}

func ValidateChapterSession(s models.ChapterSession) error {
	switch {
	case s.Dict == "" || s.StartedAt <= 0:
		return violation("chapter session without identity")
	case s.Chapter < 0 || s.ElapsedSeconds < 0 || s.CorrectCount < 0 || s.WrongCount < 0 || s.TotalWordCount < 0:
		return violation("chapter session %s/%d has negative fields", s.Dict, s.Chapter)
	}
	return nil
}

func ValidateReviewSession(s models.ReviewSession) error {
	if s.Dict == "" || s.CreatedAt <= 0 {
		return violation("review session without identity")
	}
	return nil
}

func ValidateSchedule(r models.ScheduleRecord) error {
	switch {
	case r.Word == "" || r.Dict == "":
		return violation("schedule record without identity")
	case r.EasinessFactor < models.MinEasinessFactor:
		return violation("schedule record %s has easiness factor %.2f below floor", r.Key(), r.EasinessFactor)
	case r.IntervalDays < 0 || r.ConsecutiveCorrect < 0:
		return violation("schedule record %s has negative interval or streak", r.Key())
	case r.LastReviewedAt < 0:
		return violation("schedule record %s has negative review time", r.Key())
	}
	return nil
}

func ValidateLedgerEntry(e models.LedgerEntry) error {
	if e.Timestamp <= 0 || e.Reason == "" {
		return violation("ledger entry without dedup key")
	}
	return nil
}

func ValidateAchievement(a models.AchievementUnlock) error {
	if a.AchievementID == "" || a.UnlockedAt <= 0 {
		return violation("achievement unlock without id or time")
	}
	return nil
}

// deriveNextReview recomputes NextReviewAt so a remote record can never
// carry a review date that disagrees with its interval.
func deriveNextReview(r models.ScheduleRecord) models.ScheduleRecord {
	if r.LastReviewedAt == 0 {
		r.NextReviewAt = ""
		return r
	}
	r.NextReviewAt = spaced_repetition.NextReviewDate(r.LastReviewedAt, r.IntervalDays)
	return r
}
