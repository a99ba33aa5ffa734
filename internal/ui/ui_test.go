package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/wordsync/internal/merge"
	wsync "github.com/example/wordsync/internal/sync"
	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

func TestRenderStatus(t *testing.T) {
	out := RenderStatus(wsync.Status{
		State:         wsync.StateFailed,
		LastUploadAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		LastError:     "credential rejected",
		LastErrorKind: syncerr.KindAuth,
	})
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "[auth] credential rejected")
	assert.Contains(t, out, "never")

	out = RenderStatus(wsync.Status{})
	assert.Contains(t, out, "idle")
	assert.NotContains(t, out, "Last error")
}

func TestRenderReport(t *testing.T) {
	out := RenderReport(merge.Report{
		Words:    merge.CollectionReport{Inserted: 3, Deleted: 1},
		Settings: 2,
		Rejected: 1,
	})
	assert.Contains(t, out, "words")
	assert.Contains(t, out, "settings restored: 2")
	assert.Contains(t, out, "rejected remote records: 1")

	assert.NotContains(t, RenderReport(merge.Report{}), "rejected")
}

func TestRenderDue(t *testing.T) {
	assert.Contains(t, RenderDue(nil), "Nothing to review")

	out := RenderDue([]models.ScheduleRecord{
		{Word: "cat", Dict: "cet4", NextReviewAt: "2024-06-01", EasinessFactor: 2.5, IntervalDays: 6},
	})
	assert.Contains(t, out, "1 words due")
	assert.Contains(t, out, "cat")
	assert.Contains(t, out, "every 6d")
}
