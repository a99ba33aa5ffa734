package models

// Defaults for a fresh schedule record
const (
	DefaultEasinessFactor = 2.5
	MinEasinessFactor     = 1.3
)

// DateLayout is the layout of NextReviewAt
const DateLayout = "2006-01-02"

// ScheduleRecord tracks a word's spaced repetition state using the SM-2 algorithm
type ScheduleRecord struct {
	Word               string  `json:"word" db:"word"`
	Dict               string  `json:"dict" db:"dict"`
	EasinessFactor     float64 `json:"easinessFactor" db:"easiness_factor"`
	IntervalDays       int     `json:"intervalDays" db:"interval_days"`
	ConsecutiveCorrect int     `json:"consecutiveCorrectCount" db:"consecutive_correct"`
	NextReviewAt       string  `json:"nextReviewAt" db:"next_review_at"`     // UTC date, DateLayout
	LastReviewedAt     int64   `json:"lastReviewedAt" db:"last_reviewed_at"` // unix millis
}

func (r ScheduleRecord) Key() WordKey {
	return WordKey{Word: r.Word, Dict: r.Dict}
}
