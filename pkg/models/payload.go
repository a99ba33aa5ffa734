package models

import "encoding/json"

// Settings is the denormalized settings blob. Values are kept as raw JSON
// so unknown keys survive a round trip.
type Settings map[string]json.RawMessage

// IsEmptyValue reports whether a settings value counts as absent
func IsEmptyValue(v json.RawMessage) bool {
	switch string(v) {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	return false
}

// UploadPayload is the body of POST /sync/upload
type UploadPayload struct {
	UserID             string              `json:"userId" validate:"required"`
	Timestamp          int64               `json:"timestamp" validate:"required"`
	WordRecords        []WordProgress      `json:"wordRecords"`
	ChapterRecords     []ChapterSession    `json:"chapterRecords"`
	ReviewRecords      []ReviewSession     `json:"reviewRecords"`
	ScheduleRecords    []ScheduleRecord    `json:"scheduleRecords"`
	LedgerEntries      []LedgerEntry       `json:"ledgerEntries"`
	AchievementUnlocks []AchievementUnlock `json:"achievementUnlocks"`
	Settings           Settings            `json:"settings"`
}

// Ack is the response of POST /sync/upload
type Ack struct {
	Success   bool   `json:"success"`
	UpdatedAt int64  `json:"updatedAt"`
	Error     string `json:"error,omitempty"`
}

// DownloadData is the remote snapshot. Records stay raw until the merge
// layer normalizes them, since remote payloads may use alternate field names.
type DownloadData struct {
	WordRecords        []json.RawMessage `json:"wordRecords"`
	ChapterRecords     []json.RawMessage `json:"chapterRecords"`
	ReviewRecords      []json.RawMessage `json:"reviewRecords"`
	ScheduleRecords    []json.RawMessage `json:"scheduleRecords"`
	LedgerEntries      []json.RawMessage `json:"ledgerEntries"`
	AchievementUnlocks []json.RawMessage `json:"achievementUnlocks"`
	Settings           Settings          `json:"settings"`
}

// DownloadResponse is the response of GET /sync/download
type DownloadResponse struct {
	Success bool          `json:"success"`
	Data    *DownloadData `json:"data"`
	Error   string        `json:"error,omitempty"`
}
