package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

// field lists the canonical JSON name of a record field and the alternate
// names remote payloads have been seen to use for it.
type field struct {
	name      string
	aliases   []string
	timestamp bool
}

var (
	wordProgressFields = []field{
		{name: "word"},
		{name: "dict", aliases: []string{"dictId", "dictionary"}},
		{name: "wrongCount", aliases: []string{"wrong_count"}},
		{name: "correctCount", aliases: []string{"correct_count"}},
		{name: "mistakes"},
		{name: "lastActivityTime", aliases: []string{"last_activity_time", "timeStamp"}, timestamp: true},
		{name: "mode"},
	}

	chapterSessionFields = []field{
		{name: "dict", aliases: []string{"dictId", "dictionary"}},
		{name: "chapter"},
		{name: "startedAt", aliases: []string{"timeStamp", "started_at"}, timestamp: true},
		{name: "elapsedSeconds", aliases: []string{"time", "elapsed_seconds"}},
		{name: "correctCount", aliases: []string{"correct_count"}},
		{name: "wrongCount", aliases: []string{"wrong_count"}},
		{name: "totalWordCount", aliases: []string{"wordCount", "total_word_count"}},
		{name: "correctWordIndexes", aliases: []string{"correct_word_indexes"}},
		{name: "mode"},
	}

	reviewSessionFields = []field{
		{name: "dict", aliases: []string{"dictId", "dictionary"}},
		{name: "createdAt", aliases: []string{"createTime", "created_at"}, timestamp: true},
		{name: "isFinished", aliases: []string{"is_finished"}},
		{name: "words"},
	}

	scheduleFields = []field{
		{name: "word"},
		{name: "dict", aliases: []string{"dictId", "dictionary"}},
		{name: "easinessFactor", aliases: []string{"easeFactor", "ef", "easiness_factor"}},
		{name: "intervalDays", aliases: []string{"interval", "interval_days"}},
		{name: "consecutiveCorrectCount", aliases: []string{"repetitions", "consecutive_correct"}},
		{name: "nextReviewAt", aliases: []string{"nextReviewDate", "next_review_at"}},
		{name: "lastReviewedAt", aliases: []string{"lastReviewed", "lastReviewTime", "last_reviewed_at"}, timestamp: true},
	}

	ledgerFields = []field{
		{name: "timestamp", aliases: []string{"time", "createdAt"}, timestamp: true},
		{name: "reasonCode", aliases: []string{"reason", "reason_code"}},
		{name: "points", aliases: []string{"amount"}},
		{name: "detail"},
	}

	achievementFields = []field{
		{name: "achievementId", aliases: []string{"id", "achievement_id"}},
		{name: "unlockedAt", aliases: []string{"unlockedAtTimestamp", "unlocked_at"}, timestamp: true},
	}
)

// canonicalize rewrites raw into an object carrying only canonical field
// names. A canonical name wins over its aliases; among aliases the first
// listed wins. A null value counts as absent, so the next name is tried.
// Timestamp fields given as RFC 3339 or numeric strings are converted to
// unix millis.
func canonicalize(raw json.RawMessage, fields []field) ([]byte, error) {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("record is null")
	}

	lookup := func(name string) (json.RawMessage, bool) {
		v, ok := in[name]
		if !ok || string(bytes.TrimSpace(v)) == "null" {
			return nil, false
		}
		return v, true
	}

	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		v, ok := lookup(f.name)
		for _, alias := range f.aliases {
			if ok {
				break
			}
			v, ok = lookup(alias)
		}
		if !ok {
			continue
		}
		if f.timestamp {
			ms, err := parseTimestamp(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.name, err)
			}
			v = json.RawMessage(strconv.FormatInt(ms, 10))
		}
		out[f.name] = v
	}
	return json.Marshal(out)
}

// parseTimestamp accepts epoch millis as a number or a string, or an
// RFC 3339 time string.
func parseTimestamp(v json.RawMessage) (int64, error) {
	v = bytes.TrimSpace(v)
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, fmt.Errorf("unrecognized time %q", s)
		}
		return models.Millis(t), nil
	}

	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, err
	}
	return int64(f), nil
}

func decode[T any](raw json.RawMessage, fields []field) (T, error) {
	var out T
	canonical, err := canonicalize(raw, fields)
	if err == nil {
		err = json.Unmarshal(canonical, &out)
	}
	if err != nil {
		return out, fmt.Errorf("%w: malformed record: %w", syncerr.ErrPolicyViolation, err)
	}
	return out, nil
}

func DecodeWordProgress(raw json.RawMessage) (models.WordProgress, error) {
	return decode[models.WordProgress](raw, wordProgressFields)
}

func DecodeChapterSession(raw json.RawMessage) (models.ChapterSession, error) {
	return decode[models.ChapterSession](raw, chapterSessionFields)
}

func DecodeReviewSession(raw json.RawMessage) (models.ReviewSession, error) {
	return decode[models.ReviewSession](raw, reviewSessionFields)
}

// DecodeSchedule also rederives NextReviewAt from the interval and the
// last review time.
func DecodeSchedule(raw json.RawMessage) (models.ScheduleRecord, error) {
	r, err := decode[models.ScheduleRecord](raw, scheduleFields)
	if err != nil {
		return r, err
	}
	if r.EasinessFactor == 0 {
		r.EasinessFactor = models.DefaultEasinessFactor
	}
	return deriveNextReview(r), nil
}

func DecodeLedgerEntry(raw json.RawMessage) (models.LedgerEntry, error) {
	return decode[models.LedgerEntry](raw, ledgerFields)
}

func DecodeAchievement(raw json.RawMessage) (models.AchievementUnlock, error) {
	return decode[models.AchievementUnlock](raw, achievementFields)
}

// Rejection is a remote record that could not be decoded or validated
type Rejection struct {
	Collection string
	Index      int
	Err        error
}

// Snapshot is a remote download with every record decoded and validated
type Snapshot struct {
	Words        []models.WordProgress
	Chapters     []models.ChapterSession
	Reviews      []models.ReviewSession
	Schedule     []models.ScheduleRecord
	Ledger       []models.LedgerEntry
	Achievements []models.AchievementUnlock
	Settings     models.Settings

	Rejected []Rejection
}

// Normalize decodes a download. Records that fail to decode or validate
// are collected in Rejected; the rest are kept.
func Normalize(data *models.DownloadData) Snapshot {
	var snap Snapshot
	if data == nil {
		return snap
	}

	snap.Words = decodeAll(&snap, "words", data.WordRecords, DecodeWordProgress, ValidateWordProgress)
	snap.Chapters = decodeAll(&snap, "chapters", data.ChapterRecords, DecodeChapterSession, ValidateChapterSession)
	snap.Reviews = decodeAll(&snap, "reviews", data.ReviewRecords, DecodeReviewSession, ValidateReviewSession)
	snap.Schedule = decodeAll(&snap, "schedule", data.ScheduleRecords, DecodeSchedule, ValidateSchedule)
	snap.Ledger = decodeAll(&snap, "ledger", data.LedgerEntries, DecodeLedgerEntry, ValidateLedgerEntry)
	snap.Achievements = decodeAll(&snap, "achievements", data.AchievementUnlocks, DecodeAchievement, ValidateAchievement)
	snap.Settings = data.Settings

	return snap
}

func decodeAll[T any](snap *Snapshot, collection string, raws []json.RawMessage, dec func(json.RawMessage) (T, error), validate func(T) error) []T {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		rec, err := dec(raw)
		if err == nil {
			err = validate(rec)
		}
		if err != nil {
			snap.Rejected = append(snap.Rejected, Rejection{Collection: collection, Index: i, Err: err})
			continue
		}
		out = append(out, rec)
	}
	return out
}
