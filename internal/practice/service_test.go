package practice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/database/dbtest"
	"github.com/example/wordsync/internal/spaced_repetition"
	"github.com/example/wordsync/pkg/models"
)

type countingNotifier struct {
	writes int
}

func (n *countingNotifier) NotifyLocalWrite() { n.writes++ }

func newService(t *testing.T) (*Service, *database.Store, *countingNotifier, *time.Time) {
	t.Helper()
	store := dbtest.Open(t)
	n := &countingNotifier{}
	s := NewService(store, n, zaptest.NewLogger(t))
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, store, n, &now
}

func TestRecordAttempt(t *testing.T) {
	s, store, n, now := newService(t)
	ctx := context.Background()

	out, err := s.RecordAttempt(ctx, Attempt{
		Word: "cat", Dict: "d1", Mode: models.ModeTyping,
		WrongAttempts: 2,
		Mistakes:      models.Mistakes{"1": {"e"}},
	})
	require.NoError(t, err)
	assert.Equal(t, spaced_repetition.QualityIncorrectFamiliar, out.Quality)
	assert.Zero(t, out.Points)
	require.NotNil(t, out.Progress)
	assert.Equal(t, 2, out.Progress.WrongCount)
	assert.Equal(t, 1, out.Progress.CorrectCount)
	assert.Equal(t, 0, out.Schedule.ConsecutiveCorrect)
	assert.Equal(t, "2024-01-11", out.Schedule.NextReviewAt)

	*now = now.Add(24 * time.Hour)
	out, err = s.RecordAttempt(ctx, Attempt{
		Word: "cat", Dict: "d1", Mode: models.ModeDictation,
		Mistakes: models.Mistakes{"1": {"o"}, "2": {"d"}},
	})
	require.NoError(t, err)
	assert.Equal(t, PointsWordCorrect, out.Points)
	assert.Equal(t, 1, out.Schedule.ConsecutiveCorrect)

	got, err := store.WordProgress().Get(ctx, models.WordKey{Word: "cat", Dict: "d1"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.Mistakes{"1": {"e", "o"}, "2": {"d"}}, got.Mistakes)
	assert.Equal(t, models.ModeDictation, got.Mode)
	assert.Equal(t, 2, n.writes)
}

func TestRecordAttempt_CompletionDeletes(t *testing.T) {
	s, store, _, now := newService(t)
	ctx := context.Background()
	key := models.WordKey{Word: "cat", Dict: "d1"}

	var out Outcome
	for i := 0; i < models.CompletionThreshold; i++ {
		*now = now.Add(time.Minute)
		var err error
		out, err = s.RecordAttempt(ctx, Attempt{Word: "cat", Dict: "d1"})
		require.NoError(t, err)
	}

	assert.True(t, out.Completed())
	assert.Equal(t, PointsWordCorrect+PointsWordMastered, out.Points)

	got, err := store.WordProgress().Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	sched, err := store.Schedule().Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Equal(t, 3, sched.ConsecutiveCorrect)

	balance, err := store.Ledger().Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3*PointsWordCorrect+PointsWordMastered, balance)
}

func TestRecordAttempt_Invalid(t *testing.T) {
	s, _, n, _ := newService(t)
	_, err := s.RecordAttempt(context.Background(), Attempt{Word: "cat"})
	require.Error(t, err)
	assert.Zero(t, n.writes)
}

func TestRecordAttempt_SameMillisecond(t *testing.T) {
	s, store, _, now := newService(t)
	ctx := context.Background()

	for _, word := range []string{"cat", "dog", "fox"} {
		out, err := s.RecordAttempt(ctx, Attempt{Word: word, Dict: "d1"})
		require.NoError(t, err)
		assert.Equal(t, PointsWordCorrect, out.Points, word)
	}

	balance, err := store.Ledger().Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3*PointsWordCorrect, balance)

	entries, err := store.Ledger().List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, models.Millis(*now)+int64(i), e.Timestamp)
		assert.Equal(t, models.ReasonWordCorrect, e.Reason)
	}
}

func TestFinishChapter(t *testing.T) {
	s, store, n, _ := newService(t)
	ctx := context.Background()
	session := models.ChapterSession{Dict: "d1", Chapter: 4, StartedAt: 1000, CorrectCount: 10, TotalWordCount: 10}

	inserted, err := s.FinishChapter(ctx, session)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.FinishChapter(ctx, session)
	require.NoError(t, err)
	assert.False(t, inserted)

	balance, err := store.Ledger().Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, PointsChapterFinished, balance)
	assert.Equal(t, 1, n.writes)
}

func TestReviewLifecycle(t *testing.T) {
	s, store, _, _ := newService(t)
	ctx := context.Background()

	session, err := s.StartReview(ctx, "d1", []string{"cat", "dog"})
	require.NoError(t, err)
	assert.False(t, session.IsFinished)

	changed, err := s.FinishReview(ctx, session.Key())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.FinishReview(ctx, session.Key())
	require.NoError(t, err)
	assert.False(t, changed)

	balance, err := store.Ledger().Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, PointsReviewFinished, balance)
}

func TestUnlock_EarliestWins(t *testing.T) {
	s, _, n, now := newService(t)
	ctx := context.Background()

	first, err := s.Unlock(ctx, "streak_7")
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	again, err := s.Unlock(ctx, "streak_7")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, n.writes)
}

func TestDue(t *testing.T) {
	s, _, _, now := newService(t)
	ctx := context.Background()

	for _, w := range []struct {
		word  string
		wrong int
	}{{"easy", 0}, {"hard", 4}} {
		_, err := s.RecordAttempt(ctx, Attempt{Word: w.word, Dict: "d1", WrongAttempts: w.wrong})
		require.NoError(t, err)
	}

	due, err := s.Due(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, due)

	*now = now.Add(24 * time.Hour)
	due, err = s.Due(ctx, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "hard", due[0].Word)
}
