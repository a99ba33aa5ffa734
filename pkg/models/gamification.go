package models

// Ledger reason codes
const (
	ReasonWordCorrect     = "word_correct"
	ReasonWordMastered    = "word_mastered"
	ReasonChapterFinished = "chapter_finished"
	ReasonReviewFinished  = "review_finished"
)

// LedgerKey is the dedup key of a points transaction. Two entries with the
// same timestamp and reason are the same event.
type LedgerKey struct {
	Timestamp int64  `json:"timestamp" db:"occurred_at"`
	Reason    string `json:"reasonCode" db:"reason_code"`
}

// LedgerEntry is an append-only points transaction
type LedgerEntry struct {
	Timestamp int64  `json:"timestamp" db:"occurred_at"` // unix millis
	Reason    string `json:"reasonCode" db:"reason_code"`
	Points    int    `json:"points" db:"points"`
	Detail    string `json:"detail,omitempty" db:"detail"`
}

func (e LedgerEntry) Key() LedgerKey {
	return LedgerKey{Timestamp: e.Timestamp, Reason: e.Reason}
}

// AchievementUnlock records when an achievement was first unlocked
type AchievementUnlock struct {
	AchievementID string `json:"achievementId" db:"achievement_id"`
	UnlockedAt    int64  `json:"unlockedAt" db:"unlocked_at"` // unix millis
}
