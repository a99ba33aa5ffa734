package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

func TestWordProgress(t *testing.T) {
	local := func(wrong, correct int, ts int64) *models.WordProgress {
		return &models.WordProgress{
			Word: "cat", Dict: "d1",
			WrongCount: wrong, CorrectCount: correct, LastActivityTime: ts,
			Mistakes: models.Mistakes{"0": {"k"}},
			Mode:     models.ModeTyping,
		}
	}
	remote := func(wrong, correct int, ts int64) models.WordProgress {
		return models.WordProgress{
			Word: "cat", Dict: "d1",
			WrongCount: wrong, CorrectCount: correct, LastActivityTime: ts,
			Mistakes: models.Mistakes{"2": {"r", "y"}},
			Mode:     models.ModeDictation,
		}
	}

	tests := []struct {
		name         string
		local        *models.WordProgress
		remote       models.WordProgress
		wantKind     ActionKind
		wantWrong    int
		wantCorrect  int
		wantTime     int64
		wantMode     models.PracticeMode
		wantMistakes models.Mistakes
	}{
		{
			// Scenario A
			name:        "merged completion deletes",
			local:       local(2, 1, 10),
			remote:      remote(1, 3, 20),
			wantKind:    Delete,
			wantWrong:   2,
			wantCorrect: 3,
			wantTime:    20,
			wantMode:    models.ModeTyping,
		},
		{
			name:         "remote has more wrong answers",
			local:        local(1, 0, 30),
			remote:       remote(4, 1, 20),
			wantKind:     Update,
			wantWrong:    4,
			wantCorrect:  1,
			wantTime:     30,
			wantMode:     models.ModeDictation,
			wantMistakes: models.Mistakes{"2": {"r", "y"}},
		},
		{
			name:         "tie keeps local mistakes",
			local:        local(2, 0, 10),
			remote:       remote(2, 1, 10),
			wantKind:     Update,
			wantWrong:    2,
			wantCorrect:  1,
			wantTime:     10,
			wantMode:     models.ModeTyping,
			wantMistakes: models.Mistakes{"0": {"k"}},
		},
		{
			name:     "remote older and weaker",
			local:    local(3, 2, 50),
			remote:   remote(1, 1, 20),
			wantKind: Noop,
		},
		{
			name:         "remote only inserted",
			remote:       remote(1, 2, 20),
			wantKind:     Insert,
			wantWrong:    1,
			wantCorrect:  2,
			wantTime:     20,
			wantMode:     models.ModeDictation,
			wantMistakes: models.Mistakes{"2": {"r", "y"}},
		},
		{
			name:     "remote only completed dropped",
			remote:   remote(0, 3, 20),
			wantKind: Noop,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := WordProgress(tt.local, tt.remote)
			assert.Equal(t, tt.wantKind, act.Kind)
			if act.Kind == Noop {
				return
			}
			assert.Equal(t, tt.wantWrong, act.Record.WrongCount)
			assert.Equal(t, tt.wantCorrect, act.Record.CorrectCount)
			assert.Equal(t, tt.wantTime, act.Record.LastActivityTime)
			assert.Equal(t, tt.wantMode, act.Record.Mode)
			if tt.wantMistakes != nil {
				assert.Equal(t, tt.wantMistakes, act.Record.Mistakes)
			}
			if act.Kind != Delete {
				assert.False(t, act.Record.Completed())
			}
		})
	}
}

func TestWordProgress_Idempotent(t *testing.T) {
	local := &models.WordProgress{Word: "cat", Dict: "d1", WrongCount: 1, LastActivityTime: 5, Mistakes: models.Mistakes{}}
	remote := models.WordProgress{Word: "cat", Dict: "d1", WrongCount: 3, CorrectCount: 2, LastActivityTime: 9, Mistakes: models.Mistakes{"1": {"x"}}}

	first := WordProgress(local, remote)
	assert.Equal(t, Update, first.Kind)

	second := WordProgress(&first.Record, remote)
	assert.Equal(t, Noop, second.Kind)
}

func TestWordProgress_DoesNotShareMistakes(t *testing.T) {
	remote := models.WordProgress{Word: "cat", Dict: "d1", WrongCount: 1, Mistakes: models.Mistakes{"0": {"a"}}}
	act := WordProgress(nil, remote)
	act.Record.Mistakes["0"][0] = "z"
	assert.Equal(t, "a", remote.Mistakes["0"][0])
}

func TestChapterSession(t *testing.T) {
	s := models.ChapterSession{Dict: "d1", Chapter: 2, StartedAt: 100, CorrectCount: 5}

	assert.Equal(t, Insert, ChapterSession(nil, s).Kind)

	changed := s
	changed.CorrectCount = 9
	assert.Equal(t, Noop, ChapterSession(&s, changed).Kind)
}

func TestReviewSession(t *testing.T) {
	open := models.ReviewSession{Dict: "d1", CreatedAt: 100, Words: models.StringList{"a"}}
	done := open
	done.IsFinished = true

	tests := []struct {
		name   string
		local  *models.ReviewSession
		remote models.ReviewSession
		want   ActionKind
	}{
		{name: "absent", local: nil, remote: open, want: Insert},
		{name: "finish", local: &open, remote: done, want: Update},
		{name: "never unfinish", local: &done, remote: open, want: Noop},
		{name: "both finished", local: &done, remote: done, want: Noop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := ReviewSession(tt.local, tt.remote)
			assert.Equal(t, tt.want, act.Kind)
			if act.Kind == Update {
				assert.True(t, act.Record.IsFinished)
				assert.Equal(t, tt.local.Words, act.Record.Words)
			}
		})
	}
}

func TestSchedule(t *testing.T) {
	local := &models.ScheduleRecord{Word: "cat", Dict: "d1", EasinessFactor: 2.0, IntervalDays: 20, ConsecutiveCorrect: 5, LastReviewedAt: 1000}

	tests := []struct {
		name   string
		remote models.ScheduleRecord
		want   ActionKind
	}{
		{
			name:   "newer remote wins whole",
			remote: models.ScheduleRecord{Word: "cat", Dict: "d1", EasinessFactor: 1.3, IntervalDays: 1, LastReviewedAt: 2000},
			want:   Update,
		},
		{
			name:   "tie keeps local",
			remote: models.ScheduleRecord{Word: "cat", Dict: "d1", EasinessFactor: 2.6, IntervalDays: 40, LastReviewedAt: 1000},
			want:   Noop,
		},
		{
			name:   "older remote ignored even with bigger streak",
			remote: models.ScheduleRecord{Word: "cat", Dict: "d1", EasinessFactor: 2.6, IntervalDays: 40, ConsecutiveCorrect: 9, LastReviewedAt: 500},
			want:   Noop,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := Schedule(local, tt.remote)
			assert.Equal(t, tt.want, act.Kind)
			if act.Kind == Update {
				assert.Equal(t, tt.remote, act.Record)
				assert.Equal(t, Noop, Schedule(&act.Record, tt.remote).Kind)
			}
		})
	}

	assert.Equal(t, Insert, Schedule(nil, *local).Kind)
}

func TestLedgerEntry(t *testing.T) {
	// Scenario C
	e := models.LedgerEntry{Timestamp: 1000, Reason: models.ReasonWordCorrect, Points: 10}
	assert.Equal(t, Insert, LedgerEntry(nil, e).Kind)
	assert.Equal(t, Noop, LedgerEntry(&e, e).Kind)
}

func TestAchievement(t *testing.T) {
	local := &models.AchievementUnlock{AchievementID: "x", UnlockedAt: 1000}

	// Scenario B
	act := Achievement(local, models.AchievementUnlock{AchievementID: "x", UnlockedAt: 500})
	assert.Equal(t, Update, act.Kind)
	assert.Equal(t, int64(500), act.Record.UnlockedAt)

	assert.Equal(t, Noop, Achievement(local, models.AchievementUnlock{AchievementID: "x", UnlockedAt: 1500}).Kind)
	assert.Equal(t, Noop, Achievement(&act.Record, models.AchievementUnlock{AchievementID: "x", UnlockedAt: 500}).Kind)
}

func TestAchievement_NeverLater(t *testing.T) {
	cur := models.AchievementUnlock{AchievementID: "x", UnlockedAt: 700}
	for _, ts := range []int64{900, 300, 800, 300, 100, 2000} {
		act := Achievement(&cur, models.AchievementUnlock{AchievementID: "x", UnlockedAt: ts})
		if act.Kind == Update {
			assert.Less(t, act.Record.UnlockedAt, cur.UnlockedAt)
			cur = act.Record
		}
	}
	assert.Equal(t, int64(100), cur.UnlockedAt)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"word without dict", ValidateWordProgress(models.WordProgress{Word: "a"})},
		{"negative counters", ValidateWordProgress(models.WordProgress{Word: "a", Dict: "d", WrongCount: -1})},
		{"chapter without start", ValidateChapterSession(models.ChapterSession{Dict: "d"})},
		{"review without time", ValidateReviewSession(models.ReviewSession{Dict: "d"})},
		{"ef below floor", ValidateSchedule(models.ScheduleRecord{Word: "a", Dict: "d", EasinessFactor: 1.1})},
		{"negative interval", ValidateSchedule(models.ScheduleRecord{Word: "a", Dict: "d", EasinessFactor: 2.5, IntervalDays: -1})},
		{"ledger without reason", ValidateLedgerEntry(models.LedgerEntry{Timestamp: 1})},
		{"achievement without time", ValidateAchievement(models.AchievementUnlock{AchievementID: "x"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, syncerr.ErrPolicyViolation)
		})
	}

	assert.NoError(t, ValidateSchedule(models.ScheduleRecord{Word: "a", Dict: "d", EasinessFactor: 1.3}))
}
