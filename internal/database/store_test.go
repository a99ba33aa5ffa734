package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/database/dbtest"
	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

func TestWordProgressRepository(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.Open(t).WordProgress()

	p := models.WordProgress{
		Word:             "apple",
		Dict:             "cet4",
		WrongCount:       2,
		CorrectCount:     1,
		Mistakes:         models.Mistakes{"1": {"q", "w"}},
		LastActivityTime: 1700000000000,
		Mode:             models.ModeTyping,
	}
	require.NoError(t, repo.Put(ctx, p))

	got, err := repo.Get(ctx, p.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p, *got)

	p.CorrectCount = 2
	require.NoError(t, repo.Put(ctx, p))
	got, err = repo.Get(ctx, p.Key())
	require.NoError(t, err)
	assert.Equal(t, 2, got.CorrectCount)

	missing, err := repo.Get(ctx, models.WordKey{Word: "pear", Dict: "cet4"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	mistaken, err := repo.ListWithMistakes(ctx, "cet4")
	require.NoError(t, err)
	assert.Len(t, mistaken, 1)

	require.NoError(t, repo.Delete(ctx, p.Key()))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestWordProgressRepository_RejectsCompleted(t *testing.T) {
	repo := dbtest.Open(t).WordProgress()

	err := repo.Put(context.Background(), models.WordProgress{
		Word:         "apple",
		Dict:         "cet4",
		CorrectCount: models.CompletionThreshold,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrCompletedRecord)
	assert.ErrorIs(t, err, syncerr.ErrPolicyViolation)
}

func TestChapterSessionRepository_AppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.Open(t).Chapters()

	s := models.ChapterSession{
		Dict:               "cet4",
		Chapter:            3,
		StartedAt:          1700000000000,
		ElapsedSeconds:     120,
		CorrectCount:       18,
		WrongCount:         2,
		TotalWordCount:     20,
		CorrectWordIndexes: models.IntList{0, 1, 2},
		Mode:               models.ModeTyping,
	}
	inserted, err := repo.Insert(ctx, s)
	require.NoError(t, err)
	assert.True(t, inserted)

	changed := s
	changed.CorrectCount = 0
	inserted, err = repo.Insert(ctx, changed)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.Get(ctx, s.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s, *got)
}

func TestReviewSessionRepository_FinishIsOneWay(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.Open(t).Reviews()

	s := models.ReviewSession{Dict: "cet4", CreatedAt: 1700000000000, Words: models.StringList{"apple", "pear"}}
	_, err := repo.Insert(ctx, s)
	require.NoError(t, err)

	changed, err := repo.MarkFinished(ctx, s.Key())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkFinished(ctx, s.Key())
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.Get(ctx, s.Key())
	require.NoError(t, err)
	assert.True(t, got.IsFinished)
	assert.Equal(t, s.Words, got.Words)
}

func TestScheduleRepository_ListDue(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.Open(t).Schedule()

	records := []models.ScheduleRecord{
		{Word: "a", Dict: "d", EasinessFactor: 2.5},
		{Word: "b", Dict: "d", EasinessFactor: 2.5, IntervalDays: 1, NextReviewAt: "2024-06-09", LastReviewedAt: 1},
		{Word: "c", Dict: "d", EasinessFactor: 2.5, IntervalDays: 6, NextReviewAt: "2024-06-20", LastReviewedAt: 1},
	}
	for _, r := range records {
		require.NoError(t, repo.Put(ctx, r))
	}

	due, err := repo.ListDue(ctx, "2024-06-10")
	require.NoError(t, err)
	words := make([]string, 0, len(due))
	for _, r := range due {
		words = append(words, r.Word)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, words)
}

func TestLedgerRepository_Dedup(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.Open(t).Ledger()

	e := models.LedgerEntry{Timestamp: 1700000000000, Reason: models.ReasonWordCorrect, Points: 10}
	inserted, err := repo.Insert(ctx, e)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, e)
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = repo.Insert(ctx, models.LedgerEntry{Timestamp: 1700000000000, Reason: models.ReasonWordMastered, Points: 30})
	require.NoError(t, err)

	balance, err := repo.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, balance)
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.Open(t).Settings()

	require.NoError(t, repo.Set(ctx, "theme", json.RawMessage(`"dark"`)))
	require.NoError(t, repo.Set(ctx, "volume", json.RawMessage(`0.5`)))
	require.NoError(t, repo.Set(ctx, "theme", json.RawMessage(`"light"`)))

	settings, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Settings{
		"theme":  json.RawMessage(`"light"`),
		"volume": json.RawMessage(`0.5`),
	}, settings)
}

func TestRunInTransaction(t *testing.T) {
	ctx := context.Background()
	store := dbtest.Open(t)
	p := models.WordProgress{Word: "apple", Dict: "cet4", WrongCount: 1}
	e := models.LedgerEntry{Timestamp: 1, Reason: models.ReasonWordCorrect, Points: 10}

	t.Run("commit", func(t *testing.T) {
		err := store.RunInTransaction(ctx, []database.Collection{database.CollectionWords, database.CollectionLedger}, func(tx *database.Tx) error {
			if err := tx.WordProgress().Put(ctx, p); err != nil {
				return err
			}
			_, err := tx.Ledger().Insert(ctx, e)
			return err
		})
		require.NoError(t, err)

		got, err := store.WordProgress().Get(ctx, p.Key())
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.RunInTransaction(ctx, []database.Collection{database.CollectionWords}, func(tx *database.Tx) error {
			if err := tx.WordProgress().Delete(ctx, p.Key()); err != nil {
				return err
			}
			return boom
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, syncerr.ErrStoreTransaction)
		assert.Equal(t, syncerr.KindStore, syncerr.Kind(err))

		got, err := store.WordProgress().Get(ctx, p.Key())
		require.NoError(t, err)
		assert.NotNil(t, got, "delete must be rolled back")
	})

	t.Run("out of scope", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = store.RunInTransaction(ctx, []database.Collection{database.CollectionWords}, func(tx *database.Tx) error {
				tx.Ledger()
				return nil
			})
		})

		// the connection must be usable again after the panic
		all, err := store.Ledger().List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("no collections", func(t *testing.T) {
		err := store.RunInTransaction(ctx, nil, func(tx *database.Tx) error { return nil })
		assert.ErrorIs(t, err, syncerr.ErrStoreTransaction)
	})
}
